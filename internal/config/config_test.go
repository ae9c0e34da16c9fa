package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/satprep/internal/model"
)

func TestLoadOrCreateWritesDefault(t *testing.T) {
	dir := t.TempDir()
	paths := PathsIn(filepath.Join(dir, "cfg"), filepath.Join(dir, "data"))

	cfg, notice, err := LoadOrCreate(paths)
	if err != nil {
		t.Fatalf("load or create: %v", err)
	}
	if !strings.Contains(notice, paths.ConfigPath) {
		t.Fatalf("expected notice to name the config path, got %q", notice)
	}
	if _, err := os.Stat(paths.ConfigPath); err != nil {
		t.Fatalf("expected config file to exist: %v", err)
	}
	exam := cfg.Resolve(paths)
	if exam.Questions[model.SectionRW] != DefaultRWQuestions || exam.Questions[model.SectionMath] != DefaultMathQuestions {
		t.Fatalf("unexpected question counts: %+v", exam.Questions)
	}
	if exam.TimeLimits[model.SectionMath] != DefaultMathMinutes*time.Minute {
		t.Fatalf("unexpected math limit: %v", exam.TimeLimits[model.SectionMath])
	}
	if exam.BankPaths[model.SectionRW] != paths.DefaultBankPath("rw") {
		t.Fatalf("unexpected rw bank path: %s", exam.BankPaths[model.SectionRW])
	}

	_, notice, err = LoadOrCreate(paths)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if notice != "" {
		t.Fatalf("expected no notice on clean load, got %q", notice)
	}
}

func TestLoadOrCreateResetsCorruptConfig(t *testing.T) {
	dir := t.TempDir()
	paths := PathsIn(dir, dir)
	if err := os.WriteFile(paths.ConfigPath, []byte("[[not toml"), 0o644); err != nil {
		t.Fatalf("write corrupt config: %v", err)
	}
	cfg, notice, err := LoadOrCreate(paths)
	if err != nil {
		t.Fatalf("load or create: %v", err)
	}
	if !strings.Contains(notice, "corrupted") {
		t.Fatalf("expected corruption notice, got %q", notice)
	}
	if got := cfg.Resolve(paths).BreakDuration; got != DefaultBreakMinutes*time.Minute {
		t.Fatalf("expected default break, got %v", got)
	}
}

func TestResolvePartialConfig(t *testing.T) {
	dir := t.TempDir()
	paths := PathsIn(dir, dir)
	content := "[total-questions]\nrw = 5\n[time-limits]\nmath = 1\n"
	if err := os.WriteFile(paths.ConfigPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(paths.ConfigPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	exam := cfg.Resolve(paths)
	if exam.Questions[model.SectionRW] != 5 {
		t.Fatalf("expected rw=5, got %d", exam.Questions[model.SectionRW])
	}
	if exam.Questions[model.SectionMath] != DefaultMathQuestions {
		t.Fatalf("expected default math count, got %d", exam.Questions[model.SectionMath])
	}
	if exam.TimeLimits[model.SectionMath] != time.Minute {
		t.Fatalf("expected math=1m, got %v", exam.TimeLimits[model.SectionMath])
	}
	if err := Validate(exam); err != nil {
		t.Fatalf("validate: %v", err)
	}
	exam.Questions[model.SectionRW] = 0
	if err := Validate(exam); err == nil {
		t.Fatalf("expected validation error for zero questions")
	}
}

func TestDefaultPathsHonorsEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigHome, filepath.Join(dir, "c"))
	t.Setenv(EnvDataHome, filepath.Join(dir, "d"))
	paths := DefaultPaths()
	if paths.ConfigPath != filepath.Join(dir, "c", "config.toml") {
		t.Fatalf("unexpected config path: %s", paths.ConfigPath)
	}
	if paths.ProgressPath != filepath.Join(dir, "d", "progress.json") {
		t.Fatalf("unexpected progress path: %s", paths.ProgressPath)
	}
}

func TestLoadOrCreateFailsWhenDefaultCannotBeWritten(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	paths := PathsIn(blocker, filepath.Join(dir, "data"))

	if _, _, err := LoadOrCreate(paths); err == nil {
		t.Fatalf("expected error when config dir is a file")
	}
	if err := WriteDefault(paths); err == nil || !strings.Contains(err.Error(), paths.ConfigPath) {
		t.Fatalf("expected write error naming %s, got %v", paths.ConfigPath, err)
	}
}
