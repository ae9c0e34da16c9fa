// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/satprep/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNotFound is returned when an attempt does not exist.
var ErrNotFound = errors.New("attempt not found")

// Store wraps SQLite access for analytics and attempt data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analytics_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS section_scores (
			section TEXT PRIMARY KEY,
			average REAL NOT NULL,
			best REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS weak_categories (
			section TEXT NOT NULL,
			category TEXT NOT NULL,
			incorrect INTEGER NOT NULL,
			PRIMARY KEY (section, category)
		);`,
		`CREATE TABLE IF NOT EXISTS history (
			seq INTEGER PRIMARY KEY,
			attempt_id TEXT NOT NULL,
			date TEXT NOT NULL,
			rw_pct REAL NOT NULL,
			math_pct REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS attempts (
			id TEXT PRIMARY KEY,
			finished_at TEXT NOT NULL,
			rw_correct INTEGER NOT NULL,
			rw_total INTEGER NOT NULL,
			math_correct INTEGER NOT NULL,
			math_total INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS attempt_answers (
			attempt_id TEXT NOT NULL,
			section TEXT NOT NULL,
			position INTEGER NOT NULL,
			question_id TEXT NOT NULL,
			question_text TEXT NOT NULL,
			options_json TEXT NOT NULL,
			user_answer TEXT NOT NULL,
			correct_answer TEXT NOT NULL,
			is_correct INTEGER NOT NULL,
			category TEXT NOT NULL,
			PRIMARY KEY (attempt_id, section, position)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_finished_at ON attempts(finished_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// LoadAnalytics reads the full analytics record. An empty database yields an
// empty record.
func (s *Store) LoadAnalytics(ctx context.Context) (model.AnalyticsRecord, error) {
	rec := model.NewAnalyticsRecord()

	var taken string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM analytics_meta WHERE key = 'tests_taken'`).Scan(&taken)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return rec, err
	default:
		n, err := strconv.Atoi(taken)
		if err != nil {
			return rec, fmt.Errorf("invalid tests_taken %q: %w", taken, err)
		}
		rec.TestsTaken = n
	}

	if err := s.loadSectionScores(ctx, &rec); err != nil {
		return rec, err
	}
	if err := s.loadWeakCategories(ctx, &rec); err != nil {
		return rec, err
	}
	if err := s.loadHistory(ctx, &rec); err != nil {
		return rec, err
	}
	return rec, nil
}

func (s *Store) loadSectionScores(ctx context.Context, rec *model.AnalyticsRecord) error {
	rows, err := s.db.QueryContext(ctx, `SELECT section, average, best FROM section_scores`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	for rows.Next() {
		var section string
		var avg, best float64
		if err := rows.Scan(&section, &avg, &best); err != nil {
			return err
		}
		sec := model.Section(section)
		rec.AverageScores[sec] = avg
		rec.BestScores[sec] = best
	}
	return rows.Err()
}

func (s *Store) loadWeakCategories(ctx context.Context, rec *model.AnalyticsRecord) error {
	rows, err := s.db.QueryContext(ctx, `SELECT section, category, incorrect FROM weak_categories`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	for rows.Next() {
		var section, category string
		var incorrect int
		if err := rows.Scan(&section, &category, &incorrect); err != nil {
			return err
		}
		sec := model.Section(section)
		if rec.WeakestCategories[sec] == nil {
			rec.WeakestCategories[sec] = map[string]int{}
		}
		rec.WeakestCategories[sec][category] = incorrect
	}
	return rows.Err()
}

func (s *Store) loadHistory(ctx context.Context, rec *model.AnalyticsRecord) error {
	rows, err := s.db.QueryContext(ctx, `SELECT attempt_id, date, rw_pct, math_pct FROM history ORDER BY seq ASC`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	for rows.Next() {
		var entry model.HistoryEntry
		if err := rows.Scan(&entry.AttemptID, &entry.Date, &entry.RW, &entry.Math); err != nil {
			return err
		}
		rec.History = append(rec.History, entry)
	}
	return rows.Err()
}

// SaveAnalytics replaces the stored record with rec in one transaction.
func (s *Store) SaveAnalytics(ctx context.Context, rec model.AnalyticsRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return replaceAnalytics(ctx, tx, rec)
	})
}

// InsertAttempt stores a completed attempt and its per-question answers.
func (s *Store) InsertAttempt(ctx context.Context, results model.Results) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return insertAttempt(ctx, tx, results)
	})
}

// RecordAttempt stores the attempt and the updated record in one transaction,
// so a history entry never refers to a missing attempt.
func (s *Store) RecordAttempt(ctx context.Context, rec model.AnalyticsRecord, results model.Results) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertAttempt(ctx, tx, results); err != nil {
			return err
		}
		return replaceAnalytics(ctx, tx, rec)
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceAnalytics(ctx context.Context, tx *sql.Tx, rec model.AnalyticsRecord) error {
	for _, stmt := range []string{
		`DELETE FROM analytics_meta`,
		`DELETE FROM section_scores`,
		`DELETE FROM weak_categories`,
		`DELETE FROM history`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO analytics_meta (key, value) VALUES ('tests_taken', ?)`,
		strconv.Itoa(rec.TestsTaken)); err != nil {
		return err
	}
	for _, sec := range model.Sections {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO section_scores (section, average, best) VALUES (?, ?, ?)`,
			string(sec), rec.AverageScores[sec], rec.BestScores[sec]); err != nil {
			return err
		}
		for category, incorrect := range rec.WeakestCategories[sec] {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO weak_categories (section, category, incorrect) VALUES (?, ?, ?)`,
				string(sec), category, incorrect); err != nil {
				return err
			}
		}
	}
	for i, entry := range rec.History {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO history (seq, attempt_id, date, rw_pct, math_pct) VALUES (?, ?, ?, ?, ?)`,
			i, entry.AttemptID, entry.Date, entry.RW, entry.Math); err != nil {
			return err
		}
	}

	return nil
}

func insertAttempt(ctx context.Context, tx *sql.Tx, results model.Results) (err error) {
	rw := results.Scores[model.SectionRW]
	math := results.Scores[model.SectionMath]
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO attempts (id, finished_at, rw_correct, rw_total, math_correct, math_total)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		results.AttemptID,
		results.FinishedAt.Format(time.RFC3339Nano),
		rw.Correct, rw.Total, math.Correct, math.Total,
	); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO attempt_answers (attempt_id, section, position, question_id, question_text, options_json, user_answer, correct_answer, is_correct, category)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for _, sec := range model.Sections {
		for pos, ans := range results.Answers[sec] {
			options, merr := json.Marshal(ans.Options)
			if merr != nil {
				err = merr
				return err
			}
			if _, err = stmt.ExecContext(ctx,
				results.AttemptID, string(sec), pos, ans.QuestionID, ans.QuestionText,
				string(options), ans.UserAnswer, ans.CorrectAnswer, ans.IsCorrect, ans.Category,
			); err != nil {
				return err
			}
		}
	}
	return nil
}

// AttemptSummary is an attempt without per-question detail.
type AttemptSummary struct {
	ID         string
	FinishedAt time.Time
	RW         model.SectionScore
	Math       model.SectionScore
}

// ListAttempts returns attempts filtered by cfg, oldest first.
func (s *Store) ListAttempts(ctx context.Context, cfg model.StatsConfig) ([]AttemptSummary, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Since != nil {
		clauses = append(clauses, "finished_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, finished_at, rw_correct, rw_total, math_correct, math_total
		FROM attempts
		WHERE %s
		ORDER BY finished_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []AttemptSummary
	for rows.Next() {
		var a AttemptSummary
		var finishedAt string
		if err := rows.Scan(&a.ID, &finishedAt, &a.RW.Correct, &a.RW.Total, &a.Math.Correct, &a.Math.Total); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, finishedAt)
		if err != nil {
			return nil, err
		}
		a.FinishedAt = parsed
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(out) > cfg.Last {
		out = out[len(out)-cfg.Last:]
	}
	return out, nil
}

// LastAttemptID returns the most recent attempt id.
func (s *Store) LastAttemptID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM attempts ORDER BY finished_at DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return id, err
}

// GetAttempt loads a stored attempt with its detailed answers.
func (s *Store) GetAttempt(ctx context.Context, id string) (model.Results, error) {
	var finishedAt string
	rw := model.SectionScore{}
	math := model.SectionScore{}
	err := s.db.QueryRowContext(ctx,
		`SELECT finished_at, rw_correct, rw_total, math_correct, math_total FROM attempts WHERE id = ?`, id,
	).Scan(&finishedAt, &rw.Correct, &rw.Total, &math.Correct, &math.Total)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Results{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return model.Results{}, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, finishedAt)
	if err != nil {
		return model.Results{}, err
	}
	results := model.Results{
		AttemptID:  id,
		FinishedAt: parsed,
		Scores:     map[model.Section]model.SectionScore{model.SectionRW: rw, model.SectionMath: math},
		Answers:    map[model.Section][]model.DetailedAnswer{},
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT section, question_id, question_text, options_json, user_answer, correct_answer, is_correct, category
		 FROM attempt_answers WHERE attempt_id = ? ORDER BY section, position`, id)
	if err != nil {
		return model.Results{}, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	for rows.Next() {
		var section, options string
		var ans model.DetailedAnswer
		if err := rows.Scan(&section, &ans.QuestionID, &ans.QuestionText, &options,
			&ans.UserAnswer, &ans.CorrectAnswer, &ans.IsCorrect, &ans.Category); err != nil {
			return model.Results{}, err
		}
		if err := json.Unmarshal([]byte(options), &ans.Options); err != nil {
			return model.Results{}, fmt.Errorf("invalid options for %s: %w", ans.QuestionID, err)
		}
		sec := model.Section(section)
		results.Answers[sec] = append(results.Answers[sec], ans)
	}
	if err := rows.Err(); err != nil {
		return model.Results{}, err
	}
	return results, nil
}
