// Package logging provides the console logger and the per-run JSON log.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/rs/zerolog"
)

// ConsoleOptions holds configuration for console logging.
type ConsoleOptions struct {
	Level           string
	Prefix          string
	ReportTimestamp bool
}

// NewConsole returns a leveled text logger for progress and fatal errors.
func NewConsole(w io.Writer, opts ConsoleOptions) (*log.Logger, error) {
	level := log.InfoLevel
	if opts.Level != "" {
		l, err := log.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("console log level: %w", err)
		}
		level = l
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       log.TextFormatter,
		ReportTimestamp: opts.ReportTimestamp,
		Prefix:          opts.Prefix,
	}), nil
}

// RunLogger writes JSON lines to a log file inside a run directory.
type RunLogger struct {
	zerolog.Logger
	LogPath string
	file    *os.File
}

// NewRunLogger creates <dir>/<app>.log. Every entry carries run_id, app and
// a timestamp.
func NewRunLogger(dir, app, runID string) (*RunLogger, error) {
	if dir == "" {
		return nil, fmt.Errorf("run log dir is empty")
	}
	logPath := filepath.Join(dir, sanitizeLabel(app)+".log")
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}
	logger := zerolog.New(file).With().
		Str("run_id", runID).
		Str("app", app).
		Timestamp().
		Logger()
	return &RunLogger{Logger: logger, LogPath: logPath, file: file}, nil
}

// Nop returns a RunLogger that discards everything.
func Nop() *RunLogger {
	return &RunLogger{Logger: zerolog.Nop()}
}

// Close closes the log file.
func (r *RunLogger) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func sanitizeLabel(input string) string {
	if strings.TrimSpace(input) == "" {
		return "run"
	}

	var b strings.Builder
	for i := 0; i < len(input); i++ {
		c := input[i]
		valid := (c >= 'A' && c <= 'Z') ||
			(c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') ||
			c == '_' || c == '-' || c == '.'
		if !valid {
			b.WriteByte('_')
			continue
		}
		b.WriteByte(c)
	}

	label := strings.Trim(b.String(), "_.")
	if label == "" {
		return "run"
	}
	return label
}
