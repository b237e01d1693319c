package config

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
)

// EnvPrefix prefixes every environment variable read into Settings.
const EnvPrefix = "HYDRANT_"

// Default values.
const (
	DefaultRunRoot  = "outputs"
	DefaultLogLevel = "info"
)

// ErrUsage marks problems with the command line or environment that the
// user must fix before anything runs.
var ErrUsage = errors.New("usage error")

// Settings holds the tool settings of one invocation.
type Settings struct {
	// ConfigDir replaces the program's embedded conf/ tree with a directory
	// on disk.
	ConfigDir string `env:"CONFIG_DIR"`
	// ConfigName is the root config name, without extension.
	ConfigName string `env:"CONFIG_NAME"`
	// RunRoot is where run directories are created, relative to the launch
	// directory unless absolute.
	RunRoot string `env:"RUN_ROOT"`
	// Chdir makes the process enter the run directory before the task runs.
	Chdir    bool   `env:"CHDIR"`
	LogLevel string `env:"LOG_LEVEL"`

	// Flag-only settings.
	PrintConfig bool
	Info        bool
	Help        bool
}

// Defaults returns the built-in settings.
func Defaults() *Settings {
	return &Settings{
		RunRoot:  DefaultRunRoot,
		LogLevel: DefaultLogLevel,
	}
}

func (s *Settings) validate() error {
	if _, err := log.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("%w: invalid log level %q (want debug, info, warn, error or fatal)", ErrUsage, s.LogLevel)
	}
	if s.RunRoot == "" {
		return fmt.Errorf("%w: run root must not be empty", ErrUsage)
	}
	return nil
}
