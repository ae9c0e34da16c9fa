// Package config provides configuration helpers and TOML parsing.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/satprep/internal/fsutil"
	"github.com/verte-zerg/satprep/internal/model"
)

// Defaults used when the config file omits a value.
const (
	DefaultRWQuestions   = 27
	DefaultMathQuestions = 22
	DefaultRWMinutes     = 32
	DefaultMathMinutes   = 35
	DefaultBreakMinutes  = 10
)

// ErrCorrupt marks a config file that could not be decoded.
var ErrCorrupt = errors.New("config is corrupt")

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	QuestionBanks  SectionStrings `toml:"question-banks"`
	TotalQuestions SectionInts    `toml:"total-questions"`
	TimeLimits     SectionInts    `toml:"time-limits"`
	BreakDuration  *int           `toml:"break-duration"`
}

// SectionStrings maps per-section string settings.
type SectionStrings struct {
	RW   *string `toml:"rw"`
	Math *string `toml:"math"`
}

// SectionInts maps per-section integer settings.
type SectionInts struct {
	RW   *int `toml:"rw"`
	Math *int `toml:"math"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return cfg, nil
}

// LoadOrCreate loads the config at paths.ConfigPath, writing a default file when
// it is missing and replacing it when it cannot be decoded. The notice describes
// what happened for the user; an error means no usable config could be written.
func LoadOrCreate(paths Paths) (FileConfig, string, error) {
	path := paths.ConfigPath
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return FileConfig{}, "", fmt.Errorf("failed to stat config %s: %w", path, err)
		}
		if err := WriteDefault(paths); err != nil {
			return FileConfig{}, "", err
		}
		cfg, err := LoadConfig(path)
		if err != nil {
			return FileConfig{}, "", fmt.Errorf("failed to load default config %s: %w", path, err)
		}
		return cfg, fmt.Sprintf("A default config has been created at %s", path), nil
	}

	cfg, err := LoadConfig(path)
	if err == nil {
		return cfg, "", nil
	}
	if !errors.Is(err, ErrCorrupt) {
		return FileConfig{}, "", err
	}
	notice := fmt.Sprintf("The config file at %s is corrupted; it has been reset to defaults (%v)", path, err)
	if err := WriteDefault(paths); err != nil {
		return FileConfig{}, "", err
	}
	cfg, err = LoadConfig(path)
	if err != nil {
		return FileConfig{}, "", fmt.Errorf("failed to load default config after reset %s: %w", path, err)
	}
	return cfg, notice, nil
}

// WriteDefault writes the default config template.
func WriteDefault(paths Paths) error {
	data := []byte(DefaultTemplate(paths))
	if err := fsutil.WriteFileAtomic(paths.ConfigPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to create default config %s: %w", paths.ConfigPath, err)
	}
	return nil
}

// DefaultTemplate renders the default config file.
func DefaultTemplate(paths Paths) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `# satprep configuration
# CLI flags override config values.

break-duration = %d   # Break between sections, minutes

[question-banks]
rw = %q
math = %q

[total-questions]
rw = %d     # Questions sampled per sitting
math = %d

[time-limits]
rw = %d     # Minutes
math = %d
`,
		DefaultBreakMinutes,
		paths.DefaultBankPath("rw"),
		paths.DefaultBankPath("math"),
		DefaultRWQuestions,
		DefaultMathQuestions,
		DefaultRWMinutes,
		DefaultMathMinutes,
	)
	return buf.String()
}

// Resolve applies defaults to unset values.
func (c FileConfig) Resolve(paths Paths) model.ExamConfig {
	return model.ExamConfig{
		BankPaths: map[model.Section]string{
			model.SectionRW:   stringOr(c.QuestionBanks.RW, paths.DefaultBankPath("rw")),
			model.SectionMath: stringOr(c.QuestionBanks.Math, paths.DefaultBankPath("math")),
		},
		Questions: map[model.Section]int{
			model.SectionRW:   intOr(c.TotalQuestions.RW, DefaultRWQuestions),
			model.SectionMath: intOr(c.TotalQuestions.Math, DefaultMathQuestions),
		},
		TimeLimits: map[model.Section]time.Duration{
			model.SectionRW:   time.Duration(intOr(c.TimeLimits.RW, DefaultRWMinutes)) * time.Minute,
			model.SectionMath: time.Duration(intOr(c.TimeLimits.Math, DefaultMathMinutes)) * time.Minute,
		},
		BreakDuration: time.Duration(intOr(c.BreakDuration, DefaultBreakMinutes)) * time.Minute,
	}
}

// Validate checks resolved settings.
func Validate(cfg model.ExamConfig) error {
	for _, sec := range model.Sections {
		if cfg.BankPaths[sec] == "" {
			return fmt.Errorf("question bank path for %s must not be empty", sec)
		}
		if cfg.Questions[sec] <= 0 {
			return fmt.Errorf("total questions for %s must be > 0", sec)
		}
		if cfg.TimeLimits[sec] <= 0 {
			return fmt.Errorf("time limit for %s must be > 0", sec)
		}
	}
	if cfg.BreakDuration < 0 {
		return fmt.Errorf("break duration must be >= 0")
	}
	return nil
}

func stringOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}
