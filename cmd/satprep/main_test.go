package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/satprep/internal/config"
)

func TestApplyFlagsOnlyWhenChanged(t *testing.T) {
	var questions int
	var bankPath string
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().IntVar(&questions, "rw-questions", 27, "")
	cmd.Flags().StringVar(&bankPath, "rw-bank", "", "")
	if err := cmd.Flags().Parse([]string{"--rw-questions", "5"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	keep := "from-file.json"
	cfg := config.FileConfig{}
	cfg.QuestionBanks.RW = &keep
	applyIntFlag(cmd, "rw-questions", questions, &cfg.TotalQuestions.RW)
	applyStringFlag(cmd, "rw-bank", bankPath, &cfg.QuestionBanks.RW)

	if cfg.TotalQuestions.RW == nil || *cfg.TotalQuestions.RW != 5 {
		t.Fatalf("expected rw questions override 5, got %v", cfg.TotalQuestions.RW)
	}
	if cfg.QuestionBanks.RW == nil || *cfg.QuestionBanks.RW != "from-file.json" {
		t.Fatalf("unchanged flag should keep file value, got %v", cfg.QuestionBanks.RW)
	}
}

func TestOpenLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "satprep.log")
	logger, closer, err := openLogger(path, true)
	if err != nil {
		t.Fatalf("openLogger: %v", err)
	}
	logger.Debug("bank loaded", "section", "RW")
	closer()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `msg="bank loaded"`) {
		t.Fatalf("expected debug record in log, got %q", string(data))
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"config", "banks", "stats", "export"} {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("missing subcommand %q", name)
		}
	}
}
