// Package config provides XDG path helpers.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const appName = "satprep"

// Environment overrides, usually set through a .env file.
const (
	EnvConfigHome = "SATPREP_CONFIG_HOME"
	EnvDataHome   = "SATPREP_DATA_HOME"
)

// LoadEnv reads a .env file from the working directory if present.
// Existing environment variables win.
func LoadEnv() {
	_ = godotenv.Load()
}

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// Paths holds every file location the application touches.
type Paths struct {
	ConfigPath   string
	DataDir      string
	DBPath       string
	ProgressPath string
	LogPath      string
}

// DefaultPaths resolves paths from the environment.
func DefaultPaths() Paths {
	configDir := os.Getenv(EnvConfigHome)
	if configDir == "" {
		configDir = filepath.Join(XDGConfigHome(), appName)
	}
	dataDir := os.Getenv(EnvDataHome)
	if dataDir == "" {
		dataDir = filepath.Join(XDGDataHome(), appName)
	}
	return PathsIn(configDir, dataDir)
}

// PathsIn builds paths rooted at explicit config and data directories.
func PathsIn(configDir, dataDir string) Paths {
	return Paths{
		ConfigPath:   filepath.Join(configDir, "config.toml"),
		DataDir:      dataDir,
		DBPath:       filepath.Join(dataDir, "satprep.db"),
		ProgressPath: filepath.Join(dataDir, "progress.json"),
		LogPath:      filepath.Join(dataDir, "satprep.log"),
	}
}

// DefaultBankPath returns the default question bank location for a section key.
func (p Paths) DefaultBankPath(sectionKey string) string {
	return filepath.Join(p.DataDir, sectionKey+"_questions.json")
}
