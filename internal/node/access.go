package node

import (
	"fmt"
	"strconv"
)

// Get resolves a path written in attribute (db.driver) or subscript
// (db["driver"]) syntax. Both spellings resolve to the same node.
func (n *Node) Get(path string) (*Node, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	return n.walk(p, path)
}

// Lookup resolves a path given as separate segments: strings select map
// keys, ints select list items.
func (n *Node) Lookup(segments ...any) (*Node, error) {
	p, err := segmentsOf(segments)
	if err != nil {
		return nil, err
	}
	return n.walk(p, p.String())
}

// At resolves an already parsed path.
func (n *Node) At(p Path) (*Node, error) {
	return n.walk(p, p.String())
}

// Field returns the value stored under key in a map node.
func (n *Node) Field(key string) (*Node, error) {
	return n.walk(Path{Key(key)}, key)
}

// Index returns the i-th item of a list node.
func (n *Node) Index(i int) (*Node, error) {
	return n.walk(Path{Idx(i)}, Idx(i).String())
}

// Has reports whether path resolves.
func (n *Node) Has(path string) bool {
	_, err := n.Get(path)
	return err == nil
}

// GetString resolves path and reads it as a string.
func (n *Node) GetString(path string) (string, error) {
	v, err := n.Get(path)
	if err != nil {
		return "", err
	}
	s, err := v.AsString()
	return s, withPath(err, path)
}

// GetInt resolves path and reads it as an int.
func (n *Node) GetInt(path string) (int64, error) {
	v, err := n.Get(path)
	if err != nil {
		return 0, err
	}
	i, err := v.AsInt()
	return i, withPath(err, path)
}

// GetFloat resolves path and reads it as a float.
func (n *Node) GetFloat(path string) (float64, error) {
	v, err := n.Get(path)
	if err != nil {
		return 0, err
	}
	f, err := v.AsFloat()
	return f, withPath(err, path)
}

// GetBool resolves path and reads it as a bool.
func (n *Node) GetBool(path string) (bool, error) {
	v, err := n.Get(path)
	if err != nil {
		return false, err
	}
	b, err := v.AsBool()
	return b, withPath(err, path)
}

func withPath(err error, path string) error {
	if te, ok := err.(*TypeError); ok {
		te.Path = path
	}
	return err
}

func (n *Node) walk(p Path, full string) (*Node, error) {
	cur := n
	for i, seg := range p {
		next, reason := cur.step(seg)
		if next == nil {
			return nil, &MissingKeyError{Path: full, Segment: p[:i+1].String(), Reason: reason}
		}
		cur = next
	}
	if cur == nil {
		return null, nil
	}
	return cur, nil
}

// step follows one segment. A string key on a list is accepted when it
// spells a valid index, so "layers.0" and "layers[0]" agree.
func (n *Node) step(seg Segment) (*Node, string) {
	switch n.Kind() {
	case KindMap:
		if seg.IsIndex {
			v, ok := n.index[strconv.Itoa(seg.Index)]
			if !ok {
				return nil, ""
			}
			return v, ""
		}
		v, ok := n.index[seg.Key]
		if !ok {
			return nil, ""
		}
		return v, ""
	case KindList:
		idx := seg.Index
		if !seg.IsIndex {
			i, err := strconv.Atoi(seg.Key)
			if err != nil {
				return nil, fmt.Sprintf("cannot select key %q from a list", seg.Key)
			}
			idx = i
		}
		if idx < 0 || idx >= len(n.items) {
			return nil, fmt.Sprintf("index %d out of range (len %d)", idx, len(n.items))
		}
		return n.items[idx], ""
	default:
		return nil, fmt.Sprintf("cannot descend into %s", n.Kind())
	}
}
