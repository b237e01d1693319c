// Package run creates the per-invocation run directory and the context
// handed to tasks.
package run

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nibzard/hydrant/internal/logging"
)

// ErrIO wraps every file system failure raised by a Context.
var ErrIO = errors.New("i/o error")

// ErrOutsideRunDir reports a relative name that resolves outside the run
// directory.
var ErrOutsideRunDir = errors.New("path escapes run directory")

// DefaultRoot is the run root used when Options.Root is empty.
const DefaultRoot = "outputs"

// Options configures New.
type Options struct {
	// App names the program; the run log is <App>.log.
	App string
	// Root is the parent of all run directories, relative to WorkDir unless
	// absolute.
	Root string
	// WorkDir is the launch directory. Empty means the process working
	// directory.
	WorkDir string
	// Chdir changes the process working directory into the run directory.
	Chdir bool
	// Out receives the task's regular output. Nil means os.Stdout.
	Out io.Writer
	// Now returns the start time. Nil means time.Now.
	Now func() time.Time
}

// Context describes one run. OriginalDir and Dir never change after New.
type Context struct {
	ID          string
	App         string
	StartedAt   time.Time
	OriginalDir string
	Dir         string
	Out         io.Writer

	log *logging.RunLogger
}

// New creates a fresh run directory <Root>/<YYYY-MM-DD>/<HH-MM-SS>. When the
// directory already exists a _1, _2, ... suffix is added.
func New(opts Options) (*Context, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	started := now()

	workDir := opts.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("%w: get working directory: %w", ErrIO, err)
		}
		workDir = wd
	}
	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %w", ErrIO, workDir, err)
	}

	root := opts.Root
	if root == "" {
		root = DefaultRoot
	}
	if !filepath.IsAbs(root) {
		root = filepath.Join(workDir, root)
	}

	dir, err := makeUniqueDir(filepath.Join(root, started.Format("2006-01-02")), started.Format("15-04-05"))
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger, err := logging.NewRunLogger(dir, opts.App, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	rc := &Context{
		ID:          id,
		App:         opts.App,
		StartedAt:   started,
		OriginalDir: workDir,
		Dir:         dir,
		Out:         out,
		log:         logger,
	}

	if opts.Chdir {
		if err := os.Chdir(dir); err != nil {
			_ = logger.Close()
			return nil, fmt.Errorf("%w: change directory to %s: %w", ErrIO, dir, err)
		}
	}

	logger.Info().
		Str("original_dir", workDir).
		Str("run_dir", dir).
		Bool("chdir", opts.Chdir).
		Msg("run started")
	return rc, nil
}

func makeUniqueDir(parent, name string) (string, error) {
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("%w: create %s: %w", ErrIO, parent, err)
	}
	for i := 0; ; i++ {
		candidate := name
		if i > 0 {
			candidate = name + "_" + strconv.Itoa(i)
		}
		dir := filepath.Join(parent, candidate)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: create %s: %w", ErrIO, dir, err)
		}
	}
}

// OriginalCwd returns the directory the program was launched from.
func (c *Context) OriginalCwd() string {
	return c.OriginalDir
}

// Logger returns the run's JSON logger.
func (c *Context) Logger() *zerolog.Logger {
	if c.log == nil {
		return &logging.Nop().Logger
	}
	return &c.log.Logger
}

// LogPath returns the path of the run log file.
func (c *Context) LogPath() string {
	if c.log == nil {
		return ""
	}
	return c.log.LogPath
}

// Close releases the run log. The run directory stays on disk.
func (c *Context) Close() error {
	if c.log == nil {
		return nil
	}
	if err := c.log.Close(); err != nil {
		return fmt.Errorf("%w: close run log: %w", ErrIO, err)
	}
	return nil
}
