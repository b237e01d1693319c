package compose

import (
	"fmt"
	"io/fs"
	"sort"

	"github.com/nibzard/hydrant/internal/node"
)

// DefaultsKey is the optional top-level list of group selections in a root
// config. It never appears in the composed result.
const DefaultsKey = "defaults"

const selfEntry = "_self_"

type selection struct {
	group  string
	option string
	// null selections drop a group listed in defaults
	disabled bool
}

// Merge parses root and splices the selected group options into it.
//
// Group selectors come from the root's defaults list, from top-level keys
// whose string value names an option of a group directory with the same
// name, and finally from groupSelections, which win. Each selected option is
// placed under its group key; a mapping written under the same key in the
// root is merged over the option.
func Merge(root *RawConfig, groupSelections map[string]string) (*node.Node, error) {
	tree, err := decodeRaw(root)
	if err != nil {
		return nil, err
	}

	base, err := rootSelections(root, tree)
	if err != nil {
		return nil, err
	}
	selected, defaultOrder, inRoot := base.selected, base.defaultOrder, base.inRoot

	var cliOnly []string
	for group, opt := range groupSelections {
		if !root.IsGroup(group) {
			return nil, fmt.Errorf("%w: %q has no directory in %s", ErrConfigGroupNotFound, group, root.Dir)
		}
		if _, ok := selected[group]; !ok && !inRoot[group] {
			cliOnly = append(cliOnly, group)
		}
		selected[group] = &selection{group: group, option: opt}
	}
	sort.Strings(cliOnly)

	loaded := make(map[string]*node.Node, len(selected))
	for group, s := range selected {
		if s.disabled {
			continue
		}
		opt, err := root.locateOption(group, s.option)
		if err != nil {
			return nil, err
		}
		n, err := decodeRaw(opt)
		if err != nil {
			return nil, err
		}
		loaded[group] = n
	}

	valueOf := func(key string) *node.Node {
		group := loaded[key]
		lit, err := tree.Field(key)
		if err != nil {
			return group
		}
		if lit.IsMap() {
			return node.Merge(group, lit)
		}
		return group
	}

	var entries []node.Entry
	for _, group := range defaultOrder {
		if inRoot[group] || loaded[group] == nil {
			continue
		}
		entries = append(entries, node.Entry{Key: group, Value: loaded[group]})
	}
	for _, e := range tree.Entries() {
		switch {
		case e.Key == DefaultsKey:
		case loaded[e.Key] != nil:
			entries = append(entries, node.Entry{Key: e.Key, Value: valueOf(e.Key)})
		default:
			entries = append(entries, e)
		}
	}
	for _, group := range cliOnly {
		entries = append(entries, node.Entry{Key: group, Value: loaded[group]})
	}
	return node.Map(entries...), nil
}

// baseSelections are the group selections a root makes on its own, before
// any command line override.
type baseSelections struct {
	selected     map[string]*selection
	defaultOrder []string
	inRoot       map[string]bool
}

func rootSelections(root *RawConfig, tree *node.Node) (*baseSelections, error) {
	defaults, err := defaultsList(root, tree)
	if err != nil {
		return nil, err
	}

	b := &baseSelections{
		selected: make(map[string]*selection),
		inRoot:   make(map[string]bool),
	}
	for _, s := range defaults {
		s := s
		if _, dup := b.selected[s.group]; dup {
			return nil, &ParseError{Path: root.Path, Err: fmt.Errorf("group %q listed twice in %s", s.group, DefaultsKey)}
		}
		b.selected[s.group] = &s
		b.defaultOrder = append(b.defaultOrder, s.group)
	}

	for _, e := range tree.Entries() {
		if e.Key == DefaultsKey {
			continue
		}
		b.inRoot[e.Key] = true
		opt, err := e.Value.AsString()
		if err != nil || !root.IsGroup(e.Key) {
			continue
		}
		b.selected[e.Key] = &selection{group: e.Key, option: opt}
	}
	return b, nil
}

// checkGroupAdds rejects +group=option when the group already has a
// selection, either from the root or from an earlier override.
func checkGroupAdds(root *RawConfig, overrides []Override) error {
	var base *baseSelections
	chosen := make(map[string]bool)
	for _, o := range overrides {
		if o.Kind == OverrideDelete || !o.Value.IsScalar() || o.Value.IsNull() || !root.IsGroup(o.Key) {
			continue
		}
		if o.Kind != OverrideAdd {
			chosen[o.Key] = true
			continue
		}
		if base == nil {
			tree, err := decodeRaw(root)
			if err != nil {
				return err
			}
			if base, err = rootSelections(root, tree); err != nil {
				return err
			}
		}
		s, ok := base.selected[o.Key]
		if chosen[o.Key] || base.inRoot[o.Key] || (ok && !s.disabled) {
			return fmt.Errorf("%w: could not append '%s': group already selected; to change its option use %s=%s or ++%s=%s",
				ErrInvalidOverride, o, o.Key, o.Text, o.Key, o.Text)
		}
		chosen[o.Key] = true
	}
	return nil
}

// defaultsList reads the root's defaults list:
//
//	defaults:
//	  - db: mysql
//	  - model: null    # listed but not selected
//	  - _self_
func defaultsList(root *RawConfig, tree *node.Node) ([]selection, error) {
	list, err := tree.Field(DefaultsKey)
	if err != nil {
		return nil, nil
	}
	if !list.IsList() {
		return nil, &ParseError{Path: root.Path, Err: fmt.Errorf("%s must be a list, got %s", DefaultsKey, list.Kind())}
	}
	var out []selection
	for i, item := range list.Items() {
		if s, err := item.AsString(); err == nil && s == selfEntry {
			continue
		}
		entries := item.Entries()
		if len(entries) != 1 {
			return nil, &ParseError{Path: root.Path, Err: fmt.Errorf("%s[%d]: expected a single 'group: option' entry", DefaultsKey, i)}
		}
		e := entries[0]
		if !root.IsGroup(e.Key) {
			return nil, fmt.Errorf("%w: %q listed in %s has no directory in %s", ErrConfigGroupNotFound, e.Key, DefaultsKey, root.Dir)
		}
		if e.Value.IsNull() {
			out = append(out, selection{group: e.Key, disabled: true})
			continue
		}
		opt, err := e.Value.AsString()
		if err != nil {
			return nil, &ParseError{Path: root.Path, Err: fmt.Errorf("%s[%d]: option for %q must be a string", DefaultsKey, i, e.Key)}
		}
		out = append(out, selection{group: e.Key, option: opt})
	}
	return out, nil
}

// Compose runs the full pipeline for the config named rootName in baseDir:
// locate, merge with group overrides, apply value overrides and validate
// against rootName.schema.json when present.
func Compose(fsys fs.FS, baseDir, rootName string, overrides []Override) (*node.Node, error) {
	root, err := Locate(fsys, baseDir, rootName)
	if err != nil {
		return nil, err
	}
	return ComposeRaw(root, overrides)
}

// ComposeRaw is Compose for an already located root.
func ComposeRaw(root *RawConfig, overrides []Override) (*node.Node, error) {
	if err := checkGroupAdds(root, overrides); err != nil {
		return nil, err
	}
	groups, values := SplitGroupOverrides(root, overrides)
	cfg, err := Merge(root, groups)
	if err != nil {
		return nil, err
	}
	cfg, err = ApplyOverrides(cfg, values)
	if err != nil {
		return nil, err
	}
	if err := ValidateSchema(root, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
