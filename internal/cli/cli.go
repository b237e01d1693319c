// Package cli turns a task function into a program: it composes the config
// from the command line, creates the run directory and calls the task once.
package cli

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nibzard/hydrant/internal/compose"
	"github.com/nibzard/hydrant/internal/config"
	"github.com/nibzard/hydrant/internal/logging"
	"github.com/nibzard/hydrant/internal/node"
	"github.com/nibzard/hydrant/internal/run"
)

// Exit codes.
const (
	ExitOK          = 0
	ExitError       = 1
	ExitUsage       = 2
	ExitInterrupted = 130
)

// DefaultConfigName is the root config used when neither the program nor
// the user names one.
const DefaultConfigName = "config"

// TaskFunc is the user code run with the composed config.
type TaskFunc func(ctx context.Context, rc *run.Context, cfg *node.Node) error

// Options describes the program wrapping a task.
type Options struct {
	// Name is the program name, used in usage text, log prefixes and the
	// run log file name.
	Name string
	// ConfigFS holds the config tree, usually an embed.FS. Nil means the
	// launch directory on disk.
	ConfigFS fs.FS
	// ConfigPath is the directory of the root config inside ConfigFS.
	ConfigPath string
	// ConfigName is the default root config name.
	ConfigName string

	Stdout io.Writer
	Stderr io.Writer
	// WorkDir is the launch directory. Empty means the process working
	// directory.
	WorkDir string
	// Now overrides the clock used for run directory names.
	Now func() time.Time
	// Environ replaces the process environment for settings. Nil means
	// os.Environ.
	Environ map[string]string
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = filepath.Base(os.Args[0])
	}
	if o.ConfigPath == "" {
		o.ConfigPath = "conf"
	}
	if o.ConfigName == "" {
		o.ConfigName = DefaultConfigName
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	return o
}

// Main runs task with the process arguments and exits. SIGINT and SIGTERM
// cancel the context passed to the task.
func Main(opts Options, task TaskFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Run(ctx, opts, os.Args[1:], task)
	stop()
	os.Exit(code)
}

// Run composes the config described by args, creates a run directory and
// calls task exactly once. It returns the process exit code.
func Run(ctx context.Context, opts Options, args []string, task TaskFunc) int {
	opts = opts.withDefaults()
	stderr := opts.Stderr

	settings, rest, err := config.LoadEnv(opts.Name, args, opts.Environ)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		printUsage(stderr, opts.Name)
		return ExitUsage
	}
	console, err := logging.NewConsole(stderr, logging.ConsoleOptions{Level: settings.LogLevel, Prefix: opts.Name})
	if err != nil {
		return fail(stderr, err, ExitUsage)
	}
	if settings.Help {
		printUsage(opts.Stdout, opts.Name)
		return ExitOK
	}

	for _, arg := range rest {
		if !compose.IsOverride(arg) {
			return fail(stderr, fmt.Errorf("%w: unexpected argument %q, expected key=value or ~key", config.ErrUsage, arg), ExitUsage)
		}
	}
	overrides, err := compose.ParseOverrides(rest)
	if err != nil {
		return fail(stderr, err, ExitUsage)
	}

	fsys, dir := configSource(opts, settings)
	name := opts.ConfigName
	if settings.ConfigName != "" {
		name = settings.ConfigName
	}
	console.Debug("locating config", "dir", dir, "name", name)
	root, err := compose.Locate(fsys, dir, name)
	if err != nil {
		return fail(stderr, err, ExitError)
	}

	if settings.Info {
		if err := printInfo(opts.Stdout, root); err != nil {
			return fail(stderr, err, ExitError)
		}
		return ExitOK
	}

	cfg, err := compose.ComposeRaw(root, overrides)
	if err != nil {
		return fail(stderr, err, ExitError)
	}
	console.Debug("composed config", "file", root.Path, "overrides", len(overrides))

	if settings.PrintConfig {
		text, err := cfg.YAML()
		if err != nil {
			return fail(stderr, err, ExitError)
		}
		fmt.Fprint(opts.Stdout, text)
		return ExitOK
	}

	rc, err := run.New(run.Options{
		App:     opts.Name,
		Root:    settings.RunRoot,
		WorkDir: opts.WorkDir,
		Chdir:   settings.Chdir,
		Out:     opts.Stdout,
		Now:     opts.Now,
	})
	if err != nil {
		return fail(stderr, err, ExitError)
	}
	defer func() {
		if err := rc.Close(); err != nil {
			console.Warn("closing run", "err", err)
		}
	}()
	console.Debug("run directory", "dir", rc.Dir, "id", rc.ID)

	if err := rc.SaveSnapshot(cfg, overrideTexts(overrides)); err != nil {
		return fail(stderr, err, ExitError)
	}

	return invoke(ctx, stderr, console, rc, cfg, task)
}

func invoke(ctx context.Context, stderr io.Writer, console *log.Logger, rc *run.Context, cfg *node.Node, task TaskFunc) int {
	started := time.Now()
	err := task(ctx, rc, cfg)
	elapsed := time.Since(started)
	if err != nil {
		rc.Logger().Error().Err(err).Dur("elapsed", elapsed).Msg("task failed")
		if ctx.Err() != nil {
			console.Warn("interrupted")
			return ExitInterrupted
		}
		return fail(stderr, err, ExitError)
	}
	rc.Logger().Info().Dur("elapsed", elapsed).Msg("task finished")
	return ExitOK
}

// configSource picks the embedded tree or, with --config-dir, a directory
// on disk.
func configSource(opts Options, settings *config.Settings) (fs.FS, string) {
	if settings.ConfigDir != "" {
		dir := settings.ConfigDir
		if !filepath.IsAbs(dir) && opts.WorkDir != "" {
			dir = filepath.Join(opts.WorkDir, dir)
		}
		return os.DirFS(dir), "."
	}
	if opts.ConfigFS != nil {
		return opts.ConfigFS, opts.ConfigPath
	}
	workDir := opts.WorkDir
	if workDir == "" {
		workDir = "."
	}
	return os.DirFS(workDir), opts.ConfigPath
}

func overrideTexts(overrides []compose.Override) []string {
	out := make([]string, len(overrides))
	for i, o := range overrides {
		out[i] = o.String()
	}
	return out
}

func printInfo(w io.Writer, root *compose.RawConfig) error {
	fmt.Fprintf(w, "Config: %s\n", root.Path)
	groups, err := root.Groups()
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		fmt.Fprintln(w, "Groups: none")
		return nil
	}
	fmt.Fprintln(w, "Groups:")
	for _, g := range groups {
		opts, err := root.Options(g)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %s: %s\n", g, strings.Join(opts, ", "))
	}
	return nil
}

// printUsage prints the usage message.
func printUsage(w io.Writer, name string) {
	fmt.Fprintf(w, "Usage: %s [flags] [overrides...]\n", name)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Overrides:")
	fmt.Fprintln(w, "  key=value      Replace an existing value (db.timeout=20)")
	fmt.Fprintln(w, "  group=option   Select a config group option (db=postgresql)")
	fmt.Fprintln(w, "  +key=value     Add a key that does not exist yet")
	fmt.Fprintln(w, "  ++key=value    Add or replace a key")
	fmt.Fprintln(w, "  ~key           Delete a key")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprint(w, config.FlagUsages(name))
}

func fail(w io.Writer, err error, code int) int {
	fmt.Fprintf(w, "error: %v\n", err)
	return code
}
