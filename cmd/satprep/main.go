// Package main provides the CLI entrypoint for satprep.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/satprep/internal/bank"
	"github.com/verte-zerg/satprep/internal/config"
	"github.com/verte-zerg/satprep/internal/engine"
	"github.com/verte-zerg/satprep/internal/export"
	"github.com/verte-zerg/satprep/internal/model"
	"github.com/verte-zerg/satprep/internal/scoring"
	"github.com/verte-zerg/satprep/internal/snapshot"
	"github.com/verte-zerg/satprep/internal/stats"
	"github.com/verte-zerg/satprep/internal/statsui"
	"github.com/verte-zerg/satprep/internal/store"
	"github.com/verte-zerg/satprep/internal/tui"
)

const defaultCurveWindow = 3

var (
	examRWBank        string
	examMathBank      string
	examRWQuestions   int
	examMathQuestions int
	examRWMinutes     int
	examMathMinutes   int
	examBreakMinutes  int
	verbose           bool

	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsPlain       bool

	exportAttempt string
	exportOut     string
)

// appContext carries what every command needs after startup.
type appContext struct {
	paths  config.Paths
	exam   model.ExamConfig
	logger *slog.Logger
	closer func()
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "satprep",
		Short:         "Timed SAT practice test in the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTestCmd,
	}

	rootCmd.Flags().StringVar(&examRWBank, "rw-bank", "", "Reading and Writing question bank (JSON)")
	rootCmd.Flags().StringVar(&examMathBank, "math-bank", "", "Math question bank (JSON)")
	rootCmd.Flags().IntVar(&examRWQuestions, "rw-questions", config.DefaultRWQuestions, "questions sampled for Reading and Writing")
	rootCmd.Flags().IntVar(&examMathQuestions, "math-questions", config.DefaultMathQuestions, "questions sampled for Math")
	rootCmd.Flags().IntVar(&examRWMinutes, "rw-minutes", config.DefaultRWMinutes, "Reading and Writing time limit in minutes")
	rootCmd.Flags().IntVar(&examMathMinutes, "math-minutes", config.DefaultMathMinutes, "Math time limit in minutes")
	rootCmd.Flags().IntVar(&examBreakMinutes, "break-minutes", config.DefaultBreakMinutes, "break length in minutes")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug-level logging to the log file")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newBanksCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newExportCmd())

	return rootCmd
}

// setup loads env overrides, the config file and the log file.
func setup(cmd *cobra.Command) (*appContext, error) {
	config.LoadEnv()
	paths := config.DefaultPaths()
	fileCfg, notice, err := config.LoadOrCreate(paths)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if notice != "" {
		logErrln(notice)
	}
	applyStringFlag(cmd, "rw-bank", examRWBank, &fileCfg.QuestionBanks.RW)
	applyStringFlag(cmd, "math-bank", examMathBank, &fileCfg.QuestionBanks.Math)
	applyIntFlag(cmd, "rw-questions", examRWQuestions, &fileCfg.TotalQuestions.RW)
	applyIntFlag(cmd, "math-questions", examMathQuestions, &fileCfg.TotalQuestions.Math)
	applyIntFlag(cmd, "rw-minutes", examRWMinutes, &fileCfg.TimeLimits.RW)
	applyIntFlag(cmd, "math-minutes", examMathMinutes, &fileCfg.TimeLimits.Math)
	applyIntFlag(cmd, "break-minutes", examBreakMinutes, &fileCfg.BreakDuration)

	exam := fileCfg.Resolve(paths)
	if err := config.Validate(exam); err != nil {
		return nil, err
	}

	logger, closer, err := openLogger(paths.LogPath, verbose)
	if err != nil {
		return nil, err
	}
	return &appContext{paths: paths, exam: exam, logger: logger, closer: closer}, nil
}

func openLogger(path string, debug bool) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	closer := func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort log file close.
			_ = cerr
		}
	}
	return logger, closer, nil
}

func openStore(app *appContext) (*store.Store, error) {
	st, err := store.Open(app.paths.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db %s: %w", app.paths.DBPath, err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func runTestCmd(cmd *cobra.Command, _ []string) error {
	app, err := setup(cmd)
	if err != nil {
		return err
	}
	defer app.closer()

	st, err := openStore(app)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := context.Background()
	loader := bank.NewLoader(app.exam.BankPaths)
	svc := scoring.NewService(ctx, loader, st, app.logger)
	eng := engine.New(ctx, engine.Deps{
		Banks:     loader,
		Snapshots: snapshot.New(app.paths.ProgressPath),
		Finisher:  svc,
		Logger:    app.logger,
	}, app.exam)
	app.logger.Info("starting test shell", "rw_bank", app.exam.BankPaths[model.SectionRW], "math_bank", app.exam.BankPaths[model.SectionMath])

	m := tui.NewModel(eng, svc)
	defer m.Close()
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	config.LoadEnv()
	paths := config.DefaultPaths()
	if _, notice, err := config.LoadOrCreate(paths); err != nil {
		return fmt.Errorf("failed to prepare config: %w", err)
	} else if notice != "" {
		logErrln(notice)
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], paths.ConfigPath)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newBanksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "banks",
		Short: "Check configured question banks",
		Args:  cobra.NoArgs,
		RunE:  runBanksCmd,
	}
}

func runBanksCmd(cmd *cobra.Command, _ []string) error {
	app, err := setup(cmd)
	if err != nil {
		return err
	}
	defer app.closer()

	out := cmd.OutOrStdout()
	failed := false
	for _, sec := range model.Sections {
		path := app.exam.BankPaths[sec]
		report, err := bank.Inspect(path)
		if err != nil {
			failed = true
			logErrf("%s: %v\n", sec.Title(), err)
			continue
		}
		if _, err := fmt.Fprintf(out, "%s: %s\n  valid=%d dropped=%d sampled=%d\n", sec.Title(), report.Path, report.Valid, report.Dropped, app.exam.Questions[sec]); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		categories := make([]string, 0, len(report.Categories))
		for c := range report.Categories {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			if _, err := fmt.Fprintf(out, "  %-28s %d\n", c, report.Categories[c]); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
	}
	if failed {
		return fmt.Errorf("one or more question banks could not be loaded")
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show analytics",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N tests")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a text report instead of the TUI")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if statsCurveWindow < 1 {
		return fmt.Errorf("--curve-window must be >= 1")
	}
	cfg := model.StatsConfig{
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
	}

	app, err := setup(cmd)
	if err != nil {
		return err
	}
	defer app.closer()
	st, err := openStore(app)
	if err != nil {
		return err
	}
	defer closeStore(st)

	if statsPlain {
		report, err := stats.BuildReport(context.Background(), st, cfg)
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
		return stats.Render(cmd.OutOrStdout(), report, cfg.CurveWindow)
	}

	m := statsui.NewModel(st, cfg)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a finished test to JSON or XLSX",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportAttempt, "attempt", "last", "attempt id, or 'last'")
	cmd.Flags().StringVar(&exportOut, "out", "", "output path (.json or .xlsx)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	if strings.TrimSpace(exportOut) == "" {
		return fmt.Errorf("--out is required")
	}
	app, err := setup(cmd)
	if err != nil {
		return err
	}
	defer app.closer()
	st, err := openStore(app)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := context.Background()
	id := strings.TrimSpace(exportAttempt)
	if id == "" || id == "last" {
		id, err = st.LastAttemptID(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no finished tests to export")
		}
		if err != nil {
			return fmt.Errorf("failed to find last attempt: %w", err)
		}
	}
	results, err := st.GetAttempt(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("attempt %q not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to load attempt %s: %w", id, err)
	}
	if err := export.Write(exportOut, export.Build(results)); err != nil {
		return err
	}
	app.logger.Info("exported attempt", "attempt", id, "path", exportOut)
	logErrf("Results saved to %s\n", exportOut)
	return nil
}

func applyStringFlag(cmd *cobra.Command, name, value string, target **string) {
	if !cmd.Flags().Changed(name) {
		return
	}
	v := value
	*target = &v
}

func applyIntFlag(cmd *cobra.Command, name string, value int, target **int) {
	if !cmd.Flags().Changed(name) {
		return
	}
	v := value
	*target = &v
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
