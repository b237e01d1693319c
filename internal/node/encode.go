package node

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Interface converts n into plain Go values: map[string]any, []any, string,
// int64, float64, bool or nil.
func (n *Node) Interface() any {
	switch n.Kind() {
	case KindString:
		return n.str
	case KindInt:
		return n.num
	case KindFloat:
		return n.flt
	case KindBool:
		return n.flag
	case KindList:
		out := make([]any, len(n.items))
		for i, item := range n.items {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(n.keys))
		for _, k := range n.keys {
			out[k] = n.index[k].Interface()
		}
		return out
	default:
		return nil
	}
}

// FromValue builds a tree from plain Go values. Map keys are sorted since Go
// maps carry no order.
func FromValue(v any) (*Node, error) {
	switch val := v.(type) {
	case nil:
		return null, nil
	case *Node:
		return orNull(val), nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(int64(val)), nil
	case int8:
		return Int(int64(val)), nil
	case int16:
		return Int(int64(val)), nil
	case int32:
		return Int(int64(val)), nil
	case int64:
		return Int(val), nil
	case uint8:
		return Int(int64(val)), nil
	case uint16:
		return Int(int64(val)), nil
	case uint32:
		return Int(int64(val)), nil
	case uint64:
		if val > math.MaxInt64 {
			return Float(float64(val)), nil
		}
		return Int(int64(val)), nil
	case float32:
		return Float(float64(val)), nil
	case float64:
		return Float(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", val, err)
		}
		return Float(f), nil
	case []any:
		items := make([]*Node, len(val))
		for i, item := range val {
			child, err := FromValue(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = child
		}
		return List(items...), nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]Entry, 0, len(keys))
		for _, k := range keys {
			child, err := FromValue(val[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			entries = append(entries, Entry{Key: k, Value: child})
		}
		return Map(entries...), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return FromValue(items)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return FromValue(m)
	}
	return nil, fmt.Errorf("unsupported value of type %T", v)
}

// FromYAML converts a decoded yaml.v3 node. Aliases are resolved and
// duplicate mapping keys are rejected.
func FromYAML(yn *yaml.Node) (*Node, error) {
	switch yn.Kind {
	case 0:
		return null, nil
	case yaml.DocumentNode:
		if len(yn.Content) == 0 {
			return null, nil
		}
		return FromYAML(yn.Content[0])
	case yaml.AliasNode:
		return FromYAML(yn.Alias)
	case yaml.SequenceNode:
		items := make([]*Node, len(yn.Content))
		for i, c := range yn.Content {
			child, err := FromYAML(c)
			if err != nil {
				return nil, err
			}
			items[i] = child
		}
		return List(items...), nil
	case yaml.MappingNode:
		entries := make([]Entry, 0, len(yn.Content)/2)
		pos := make(map[string]int, len(yn.Content)/2)
		explicit := make(map[string]bool, len(yn.Content)/2)
		for i := 0; i+1 < len(yn.Content); i += 2 {
			k, v := yn.Content[i], yn.Content[i+1]
			if k.ShortTag() == "!!merge" {
				sources, err := mergeSources(v)
				if err != nil {
					return nil, err
				}
				for _, src := range sources {
					for _, e := range src.Entries() {
						if _, ok := pos[e.Key]; ok {
							continue
						}
						pos[e.Key] = len(entries)
						entries = append(entries, e)
					}
				}
				continue
			}
			if explicit[k.Value] {
				return nil, fmt.Errorf("line %d: duplicate key %q", k.Line, k.Value)
			}
			explicit[k.Value] = true
			child, err := FromYAML(v)
			if err != nil {
				return nil, err
			}
			if at, ok := pos[k.Value]; ok {
				entries[at].Value = child
				continue
			}
			pos[k.Value] = len(entries)
			entries = append(entries, Entry{Key: k.Value, Value: child})
		}
		return Map(entries...), nil
	case yaml.ScalarNode:
		// Timestamps stay as written; the tree has no time kind.
		if yn.ShortTag() == "!!timestamp" {
			return String(yn.Value), nil
		}
		var v any
		if err := yn.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", yn.Line, err)
		}
		return FromValue(v)
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", yn.Line, yn.Kind)
}

// MarshalYAML implements yaml.Marshaler, keeping map order.
func (n *Node) MarshalYAML() (any, error) {
	return n.yamlNode(), nil
}

func (n *Node) yamlNode() *yaml.Node {
	switch n.Kind() {
	case KindMap:
		yn := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range n.keys {
			yn.Content = append(yn.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				n.index[k].yamlNode())
		}
		return yn
	case KindList:
		yn := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range n.items {
			yn.Content = append(yn.Content, item.yamlNode())
		}
		return yn
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.str}
	case KindInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: n.String()}
	case KindFloat:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: n.String()}
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: n.String()}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

// YAML renders n as a block YAML document.
func (n *Node) YAML() (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n.yamlNode()); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (n *Node) flow() string {
	yn := n.yamlNode()
	setFlow(yn)
	out, err := yaml.Marshal(yn)
	if err != nil {
		return fmt.Sprintf("<%s>", n.Kind())
	}
	return strings.TrimSuffix(string(out), "\n")
}

func setFlow(yn *yaml.Node) {
	yn.Style |= yaml.FlowStyle
	for _, c := range yn.Content {
		setFlow(c)
	}
}

// Decode copies the tree into v, which is typically a pointer to a struct
// with yaml tags.
func (n *Node) Decode(v any) error {
	return n.yamlNode().Decode(v)
}

// MarshalJSON implements json.Marshaler, keeping map order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) writeJSON(buf *bytes.Buffer) error {
	switch n.Kind() {
	case KindMap:
		buf.WriteByte('{')
		for i, k := range n.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := n.index[k].writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindList:
		buf.WriteByte('[')
		for i, item := range n.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindString:
		b, err := json.Marshal(n.str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindInt:
		buf.WriteString(strconv.FormatInt(n.num, 10))
	case KindFloat:
		if math.IsInf(n.flt, 0) || math.IsNaN(n.flt) {
			return fmt.Errorf("cannot encode %v as JSON", n.flt)
		}
		buf.WriteString(strconv.FormatFloat(n.flt, 'g', -1, 64))
	case KindBool:
		buf.WriteString(strconv.FormatBool(n.flag))
	default:
		buf.WriteString("null")
	}
	return nil
}

// mergeSources returns the mappings named by a "<<" value, which is either a
// single mapping or a sequence of mappings. Earlier sources take precedence.
func mergeSources(v *yaml.Node) ([]*Node, error) {
	if v.Kind == yaml.AliasNode {
		v = v.Alias
	}
	items := []*yaml.Node{v}
	if v.Kind == yaml.SequenceNode {
		items = v.Content
	}
	sources := make([]*Node, 0, len(items))
	for _, item := range items {
		src, err := FromYAML(item)
		if err != nil {
			return nil, err
		}
		if !src.IsMap() {
			return nil, fmt.Errorf("line %d: merge value must be a mapping or a list of mappings", item.Line)
		}
		sources = append(sources, src)
	}
	return sources, nil
}
