package compose

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Format is a config file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
	FormatHCL  Format = "hcl"
)

// Extensions lists the recognised file extensions in lookup order.
var Extensions = []string{".yaml", ".yml", ".toml", ".json", ".hcl"}

// FormatOf returns the format for a file name, or "" if the extension is not
// recognised.
func FormatOf(name string) Format {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	case ".json":
		return FormatJSON
	case ".hcl":
		return FormatHCL
	}
	return ""
}

// RawConfig is a located but unparsed config file.
type RawConfig struct {
	// FS and Dir identify the config directory the file was found in.
	FS  fs.FS
	Dir string
	// Name is the file name without extension.
	Name   string
	Path   string
	Format Format
	Text   []byte
}

// Locate reads baseDir/rootName.<ext> from fsys. Paths use forward slashes
// as required by io/fs.
func Locate(fsys fs.FS, baseDir, rootName string) (*RawConfig, error) {
	raw, err := find(fsys, baseDir, rootName)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, searched(baseDir, rootName))
	}
	return raw, err
}

func find(fsys fs.FS, dir, name string) (*RawConfig, error) {
	dir = cleanDir(dir)
	candidates := []string{name}
	if FormatOf(name) == "" {
		candidates = candidates[:0]
		for _, ext := range Extensions {
			candidates = append(candidates, name+ext)
		}
	}
	for _, c := range candidates {
		p := path.Join(dir, c)
		data, err := fs.ReadFile(fsys, p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		return &RawConfig{
			FS:     fsys,
			Dir:    dir,
			Name:   strings.TrimSuffix(c, path.Ext(c)),
			Path:   p,
			Format: FormatOf(c),
			Text:   data,
		}, nil
	}
	return nil, fs.ErrNotExist
}

func searched(dir, name string) string {
	p := path.Join(cleanDir(dir), name)
	if FormatOf(name) != "" {
		return p
	}
	exts := make([]string, len(Extensions))
	for i, e := range Extensions {
		exts[i] = strings.TrimPrefix(e, ".")
	}
	return p + ".{" + strings.Join(exts, ",") + "}"
}

func cleanDir(dir string) string {
	if dir == "" {
		return "."
	}
	return path.Clean(dir)
}

// IsGroup reports whether the config directory of raw has a group directory
// named key.
func (raw *RawConfig) IsGroup(key string) bool {
	if key == "" || strings.ContainsAny(key, `/\.`) {
		return false
	}
	info, err := fs.Stat(raw.FS, path.Join(raw.Dir, key))
	return err == nil && info.IsDir()
}

// Groups lists the group directories next to the root file.
func (raw *RawConfig) Groups() ([]string, error) {
	entries, err := fs.ReadDir(raw.FS, raw.Dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", raw.Dir, err)
	}
	var groups []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			groups = append(groups, e.Name())
		}
	}
	return groups, nil
}

// Options lists the selectable options of a group, sorted.
func (raw *RawConfig) Options(group string) ([]string, error) {
	if !raw.IsGroup(group) {
		return nil, fmt.Errorf("%w: %q", ErrConfigGroupNotFound, group)
	}
	dir := path.Join(raw.Dir, group)
	entries, err := fs.ReadDir(raw.FS, dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	seen := make(map[string]bool)
	var opts []string
	for _, e := range entries {
		if e.IsDir() || FormatOf(e.Name()) == "" || strings.HasSuffix(e.Name(), ".schema.json") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		if !seen[name] {
			seen[name] = true
			opts = append(opts, name)
		}
	}
	sort.Strings(opts)
	return opts, nil
}

// locateOption reads baseDir/group/option.<ext>.
func (raw *RawConfig) locateOption(group, option string) (*RawConfig, error) {
	if !raw.IsGroup(group) {
		return nil, fmt.Errorf("%w: %q has no directory in %s", ErrConfigGroupNotFound, group, raw.Dir)
	}
	if option == "" || strings.ContainsAny(option, `/\`) {
		return nil, fmt.Errorf("%w: invalid option %q for group %q", ErrConfigGroupNotFound, option, group)
	}
	opt, err := find(raw.FS, path.Join(raw.Dir, group), option)
	if errors.Is(err, fs.ErrNotExist) {
		available, _ := raw.Options(group)
		return nil, fmt.Errorf("%w: could not find '%s/%s'; available options in '%s': %s",
			ErrConfigGroupNotFound, group, option, group, strings.Join(available, ", "))
	}
	return opt, err
}
