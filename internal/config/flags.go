package config

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

// newFlagSet binds every settings flag to cfg.
func newFlagSet(name string, cfg *Settings) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	fs.SetOutput(io.Discard)

	fs.StringVarP(&cfg.ConfigDir, "config-dir", "d", "", "Load configs from this directory instead of the built-in tree")
	fs.StringVarP(&cfg.ConfigName, "config-name", "n", "", "Root config name, without extension")
	fs.StringVar(&cfg.RunRoot, "run-root", "", "Parent directory of run directories (default \""+DefaultRunRoot+"\")")
	fs.BoolVar(&cfg.Chdir, "chdir", false, "Change into the run directory before running")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Console log level: debug, info, warn, error (default \""+DefaultLogLevel+"\")")
	fs.BoolVar(&cfg.PrintConfig, "cfg", false, "Print the composed config and exit")
	fs.BoolVar(&cfg.Info, "info", false, "List config groups and their options and exit")
	fs.BoolVarP(&cfg.Help, "help", "h", false, "Show this help")
	return fs
}

// parseFlags parses args into a fresh Settings and returns the positional
// arguments.
func parseFlags(name string, args []string) (*Settings, []string, error) {
	cfg := &Settings{}
	fs := newFlagSet(name, cfg)
	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	return cfg, fs.Args(), nil
}

// FlagUsages renders the flag table for help output.
func FlagUsages(name string) string {
	return newFlagSet(name, &Settings{}).FlagUsages()
}
