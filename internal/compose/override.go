package compose

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"gopkg.in/yaml.v3"

	"github.com/nibzard/hydrant/internal/node"
)

// OverrideKind selects how an override changes the composed config.
type OverrideKind uint8

const (
	// OverrideSet replaces an existing value: key=value.
	OverrideSet OverrideKind = iota
	// OverrideAdd adds a key that must not exist yet: +key=value.
	OverrideAdd
	// OverrideForce adds or replaces: ++key=value.
	OverrideForce
	// OverrideDelete removes an existing key: ~key.
	OverrideDelete
)

func (k OverrideKind) prefix() string {
	switch k {
	case OverrideAdd:
		return "+"
	case OverrideForce:
		return "++"
	case OverrideDelete:
		return "~"
	}
	return ""
}

// Override is one command line override.
type Override struct {
	Kind  OverrideKind
	Key   string
	Value *node.Node
	// Text is the value as typed, before parsing.
	Text string
}

func (o Override) String() string {
	if o.Kind == OverrideDelete {
		return "~" + o.Key
	}
	return o.Kind.prefix() + o.Key + "=" + o.Text
}

// IsOverride reports whether arg looks like an override rather than a
// positional argument.
func IsOverride(arg string) bool {
	return strings.Contains(arg, "=") || strings.HasPrefix(arg, "~")
}

// ParseOverride parses a single override argument:
//
//	db.timeout=20        replace an existing value
//	+db.port=3306        add a new key
//	++db.port=3306       add or replace
//	~db.password         delete
//	db=postgresql        select another option of group db
//
// The value is read as a YAML flow value, so 10 is an int, [a, b] a list and
// '10' a string. Text that would only parse as a block mapping stays a string.
func ParseOverride(raw string) (Override, error) {
	kind := OverrideSet
	rest := raw
	switch {
	case strings.HasPrefix(raw, "++"):
		kind, rest = OverrideForce, raw[2:]
	case strings.HasPrefix(raw, "+"):
		kind, rest = OverrideAdd, raw[1:]
	case strings.HasPrefix(raw, "~"):
		kind, rest = OverrideDelete, raw[1:]
	}

	key, text, hasEq := strings.Cut(rest, "=")
	if kind == OverrideDelete {
		if hasEq && text != "" {
			return Override{}, fmt.Errorf("%w %q: a delete override takes no value", ErrInvalidOverride, raw)
		}
		if err := validateKey(raw, key); err != nil {
			return Override{}, err
		}
		return Override{Kind: kind, Key: key}, nil
	}

	if !hasEq || key == "" {
		return Override{}, fmt.Errorf("%w %q: must be a configuration key, followed by an equals sign, and then a value for that key", ErrInvalidOverride, raw)
	}
	if err := validateKey(raw, key); err != nil {
		return Override{}, err
	}
	value, err := parseValue(text)
	if err != nil {
		return Override{}, fmt.Errorf("%w %q: %v", ErrInvalidOverride, raw, err)
	}
	return Override{Kind: kind, Key: key, Value: value, Text: text}, nil
}

// ParseOverrides parses every argument in order.
func ParseOverrides(args []string) ([]Override, error) {
	out := make([]Override, 0, len(args))
	for _, arg := range args {
		o, err := ParseOverride(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// validateKey accepts dotted identifiers (db.timeout, layers.0) and the
// subscript forms understood by node.ParsePath.
func validateKey(raw, key string) error {
	if key == "" {
		return fmt.Errorf("%w %q: empty key", ErrInvalidOverride, raw)
	}
	if _, err := node.ParsePath(key); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidOverride, raw, err)
	}
	if strings.ContainsAny(key, "[]") {
		return nil
	}
	for _, step := range strings.Split(key, ".") {
		if _, err := strconv.Atoi(step); err == nil {
			continue
		}
		if !hclsyntax.ValidIdentifier(step) {
			return fmt.Errorf("%w %q: invalid component %q; dot-separated parts must be a letter followed by letters, digits, dashes or underscores",
				ErrInvalidOverride, raw, step)
		}
	}
	return nil
}

func parseValue(text string) (*node.Node, error) {
	if strings.TrimSpace(text) == "" {
		return node.String(text), nil
	}
	trimmed := strings.TrimSpace(text)
	flow := strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{")

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		if flow {
			return nil, err
		}
		return node.String(text), nil
	}
	v, err := node.FromYAML(&doc)
	if err != nil {
		if flow {
			return nil, err
		}
		return node.String(text), nil
	}
	if !flow && !v.IsScalar() {
		return node.String(text), nil
	}
	return v, nil
}

// SplitGroupOverrides separates group selections (db=postgresql, where db is
// a group directory) from value overrides. The last selection of a group
// wins.
func SplitGroupOverrides(root *RawConfig, overrides []Override) (map[string]string, []Override) {
	groups := make(map[string]string)
	var values []Override
	for _, o := range overrides {
		if o.Kind != OverrideDelete && o.Value.IsScalar() && !o.Value.IsNull() && root.IsGroup(o.Key) {
			groups[o.Key] = o.Value.String()
			continue
		}
		values = append(values, o)
	}
	return groups, values
}

// ApplyOverrides applies value overrides in order and returns the new tree.
// A plain key=value on a key the config does not have is rejected; the
// caller must spell it +key=value to add it.
func ApplyOverrides(cfg *node.Node, overrides []Override) (*node.Node, error) {
	for _, o := range overrides {
		var (
			next *node.Node
			err  error
		)
		switch o.Kind {
		case OverrideSet:
			next, err = cfg.With(o.Key, o.Value)
			if errors.Is(err, node.ErrMissingKey) {
				return nil, fmt.Errorf("%w: could not override '%s': %w; to append to the config use +%s", ErrInvalidOverride, o.Key, err, o)
			}
		case OverrideAdd:
			next, err = cfg.Insert(o.Key, o.Value)
			if errors.Is(err, node.ErrKeyExists) {
				return nil, fmt.Errorf("%w: could not append '%s': %w; to change its value use %s=%s or ++%s", ErrInvalidOverride, o.Key, err, o.Key, o.Text, strings.TrimPrefix(o.String(), "+"))
			}
		case OverrideForce:
			next, err = cfg.Upsert(o.Key, o.Value)
		case OverrideDelete:
			next, err = cfg.Without(o.Key)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidOverride, o, err)
		}
		cfg = next
	}
	return cfg, nil
}
