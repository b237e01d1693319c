// Package node implements the resolved configuration tree.
//
// A Node is a tagged union of null, string, int, float, bool, list and map.
// Maps keep their insertion order for display; lookups never depend on it.
// Nodes are immutable: every operation that "changes" a tree returns a new
// one and leaves the receiver as it was.
package node

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Node.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Node is a single value in a configuration tree.
type Node struct {
	kind  Kind
	str   string
	num   int64
	flt   float64
	flag  bool
	items []*Node
	keys  []string
	index map[string]*Node
}

// Entry is a key/value pair used to build maps in order.
type Entry struct {
	Key   string
	Value *Node
}

var null = &Node{kind: KindNull}

// Null returns the null node.
func Null() *Node { return null }

// String returns a string node.
func String(s string) *Node { return &Node{kind: KindString, str: s} }

// Int returns an integer node.
func Int(i int64) *Node { return &Node{kind: KindInt, num: i} }

// Float returns a floating point node.
func Float(f float64) *Node { return &Node{kind: KindFloat, flt: f} }

// Bool returns a boolean node.
func Bool(b bool) *Node { return &Node{kind: KindBool, flag: b} }

// List returns a list node holding items. Nil items are stored as null.
func List(items ...*Node) *Node {
	n := &Node{kind: KindList, items: make([]*Node, len(items))}
	for i, item := range items {
		n.items[i] = orNull(item)
	}
	return n
}

// Map returns a map node built from entries in order. A repeated key
// replaces the earlier value but keeps the earlier position.
func Map(entries ...Entry) *Node {
	n := &Node{
		kind:  KindMap,
		keys:  make([]string, 0, len(entries)),
		index: make(map[string]*Node, len(entries)),
	}
	for _, e := range entries {
		if _, ok := n.index[e.Key]; !ok {
			n.keys = append(n.keys, e.Key)
		}
		n.index[e.Key] = orNull(e.Value)
	}
	return n
}

func orNull(n *Node) *Node {
	if n == nil {
		return null
	}
	return n
}

// Kind reports the variant held by n. A nil node is null.
func (n *Node) Kind() Kind {
	if n == nil {
		return KindNull
	}
	return n.kind
}

// IsNull reports whether n holds null.
func (n *Node) IsNull() bool { return n.Kind() == KindNull }

// IsMap reports whether n is a map.
func (n *Node) IsMap() bool { return n.Kind() == KindMap }

// IsList reports whether n is a list.
func (n *Node) IsList() bool { return n.Kind() == KindList }

// IsScalar reports whether n is neither a list nor a map.
func (n *Node) IsScalar() bool {
	k := n.Kind()
	return k != KindList && k != KindMap
}

// Len returns the number of entries of a map or items of a list, and zero
// for scalars.
func (n *Node) Len() int {
	switch n.Kind() {
	case KindMap:
		return len(n.keys)
	case KindList:
		return len(n.items)
	default:
		return 0
	}
}

// Keys returns the map keys in insertion order.
func (n *Node) Keys() []string {
	if n.Kind() != KindMap {
		return nil
	}
	out := make([]string, len(n.keys))
	copy(out, n.keys)
	return out
}

// Entries returns the map entries in insertion order.
func (n *Node) Entries() []Entry {
	if n.Kind() != KindMap {
		return nil
	}
	out := make([]Entry, len(n.keys))
	for i, k := range n.keys {
		out[i] = Entry{Key: k, Value: n.index[k]}
	}
	return out
}

// Items returns the list items.
func (n *Node) Items() []*Node {
	if n.Kind() != KindList {
		return nil
	}
	out := make([]*Node, len(n.items))
	copy(out, n.items)
	return out
}

// AsString returns the value of a string node.
func (n *Node) AsString() (string, error) {
	if n.Kind() != KindString {
		return "", &TypeError{Want: KindString, Got: n.Kind()}
	}
	return n.str, nil
}

// AsInt returns the value of an int node. Floats holding a whole number are
// accepted as well.
func (n *Node) AsInt() (int64, error) {
	switch n.Kind() {
	case KindInt:
		return n.num, nil
	case KindFloat:
		// Whole floats inside the int64 range convert exactly.
		if n.flt == math.Trunc(n.flt) && n.flt >= -(1<<63) && n.flt < 1<<63 {
			return int64(n.flt), nil
		}
	}
	return 0, &TypeError{Want: KindInt, Got: n.Kind()}
}

// AsFloat returns the value of a float node; ints widen.
func (n *Node) AsFloat() (float64, error) {
	switch n.Kind() {
	case KindFloat:
		return n.flt, nil
	case KindInt:
		return float64(n.num), nil
	}
	return 0, &TypeError{Want: KindFloat, Got: n.Kind()}
}

// AsBool returns the value of a bool node.
func (n *Node) AsBool() (bool, error) {
	if n.Kind() != KindBool {
		return false, &TypeError{Want: KindBool, Got: n.Kind()}
	}
	return n.flag, nil
}

// String renders scalars as plain text and containers as flow YAML.
func (n *Node) String() string {
	switch n.Kind() {
	case KindNull:
		return "null"
	case KindString:
		return n.str
	case KindInt:
		return strconv.FormatInt(n.num, 10)
	case KindFloat:
		return formatFloat(n.flt)
	case KindBool:
		return strconv.FormatBool(n.flag)
	default:
		return n.flow()
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if f == math.Trunc(f) && !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Equal reports whether a and b hold the same tree. Map order is ignored.
func Equal(a, b *Node) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case KindNull:
		return true
	case KindString:
		return a.str == b.str
	case KindInt:
		return a.num == b.num
	case KindFloat:
		return a.flt == b.flt
	case KindBool:
		return a.flag == b.flag
	case KindList:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.keys) != len(b.keys) {
			return false
		}
		for _, k := range a.keys {
			bv, ok := b.index[k]
			if !ok || !Equal(a.index[k], bv) {
				return false
			}
		}
		return true
	}
	return false
}
