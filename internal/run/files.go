package run

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nibzard/hydrant/internal/node"
)

// SnapshotDir is the subdirectory of a run directory holding the inputs of
// the run.
const SnapshotDir = ".hydrant"

// Path returns name inside the run directory. Absolute names are returned
// unchanged; relative names must not climb out of the run directory.
func (c *Context) Path(name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}
	p := filepath.Join(c.Dir, name)
	rel, err := filepath.Rel(c.Dir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRunDir, name)
	}
	return p, nil
}

// Resolve returns name relative to the launch directory. Absolute names are
// returned unchanged.
func (c *Context) Resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.OriginalDir, name)
}

// WriteFile writes data to name inside the run directory, creating parent
// directories as needed.
func (c *Context) WriteFile(name string, data []byte) error {
	p, err := c.Path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrIO, filepath.Dir(p), err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrIO, p, err)
	}
	c.Logger().Debug().Str("file", p).Int("bytes", len(data)).Msg("wrote file")
	return nil
}

// Create opens name inside the run directory for writing, truncating it.
func (c *Context) Create(name string) (*os.File, error) {
	p, err := c.Path(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrIO, filepath.Dir(p), err)
	}
	f, err := os.Create(p)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrIO, p, err)
	}
	return f, nil
}

// ReadFile reads name from the run directory.
func (c *Context) ReadFile(name string) ([]byte, error) {
	p, err := c.Path(name)
	if err != nil {
		return nil, err
	}
	return readFile(p)
}

// ReadOriginal reads name relative to the launch directory.
func (c *Context) ReadOriginal(name string) ([]byte, error) {
	return readFile(c.Resolve(name))
}

func readFile(p string) ([]byte, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrIO, p, err)
	}
	return data, nil
}

// SaveSnapshot records the composed config and the overrides that produced
// it under .hydrant/ in the run directory.
func (c *Context) SaveSnapshot(cfg *node.Node, overrides []string) error {
	text, err := cfg.YAML()
	if err != nil {
		return fmt.Errorf("render config snapshot: %w", err)
	}
	if err := c.WriteFile(filepath.Join(SnapshotDir, "config.yaml"), []byte(text)); err != nil {
		return err
	}

	if overrides == nil {
		overrides = []string{}
	}
	data, err := yaml.Marshal(overrides)
	if err != nil {
		return fmt.Errorf("render overrides snapshot: %w", err)
	}
	if err := c.WriteFile(filepath.Join(SnapshotDir, "overrides.yaml"), data); err != nil {
		return err
	}
	c.Logger().Info().Strs("overrides", overrides).Msg("snapshot saved")
	return nil
}
