package node

import (
	"fmt"
	"strconv"
)

type editMode uint8

const (
	editReplace editMode = iota
	editInsert
	editUpsert
	editDelete
)

// With returns a copy of n with the value at path replaced. The path must
// already exist.
func (n *Node) With(path string, value *Node) (*Node, error) {
	return n.editPath(path, value, editReplace)
}

// Insert returns a copy of n with value added at path. Missing intermediate
// maps are created; an existing value at path is an error.
func (n *Node) Insert(path string, value *Node) (*Node, error) {
	return n.editPath(path, value, editInsert)
}

// Upsert returns a copy of n with value set at path whether or not it
// existed before.
func (n *Node) Upsert(path string, value *Node) (*Node, error) {
	return n.editPath(path, value, editUpsert)
}

// Without returns a copy of n with the key or list item at path removed.
func (n *Node) Without(path string) (*Node, error) {
	return n.editPath(path, nil, editDelete)
}

func (n *Node) editPath(path string, value *Node, mode editMode) (*Node, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	return n.edit(p, 0, path, orNull(value), mode)
}

// edit rebuilds only the nodes along p; untouched subtrees are shared.
func (n *Node) edit(p Path, depth int, full string, value *Node, mode editMode) (*Node, error) {
	seg := p[depth]
	last := depth == len(p)-1
	missing := func(reason string) error {
		return &MissingKeyError{Path: full, Segment: p[:depth+1].String(), Reason: reason}
	}

	switch n.Kind() {
	case KindMap:
		key := seg.Key
		if seg.IsIndex {
			key = strconv.Itoa(seg.Index)
		}
		child, exists := n.index[key]
		if last {
			switch {
			case mode == editInsert && exists:
				return nil, fmt.Errorf("%w: %q", ErrKeyExists, full)
			case (mode == editReplace || mode == editDelete) && !exists:
				return nil, missing("")
			case mode == editDelete:
				return n.dropKey(key), nil
			}
			return n.setKey(key, value), nil
		}
		if !exists {
			if mode != editInsert && mode != editUpsert {
				return nil, missing("")
			}
			child = Map()
		}
		updated, err := child.edit(p, depth+1, full, value, mode)
		if err != nil {
			return nil, err
		}
		return n.setKey(key, updated), nil

	case KindList:
		idx := seg.Index
		if !seg.IsIndex {
			i, err := strconv.Atoi(seg.Key)
			if err != nil {
				return nil, missing(fmt.Sprintf("cannot select key %q from a list", seg.Key))
			}
			idx = i
		}
		if idx < 0 || idx >= len(n.items) {
			return nil, missing(fmt.Sprintf("index %d out of range (len %d)", idx, len(n.items)))
		}
		if last {
			switch mode {
			case editInsert:
				return nil, fmt.Errorf("%w: %q", ErrKeyExists, full)
			case editDelete:
				items := make([]*Node, 0, len(n.items)-1)
				items = append(items, n.items[:idx]...)
				items = append(items, n.items[idx+1:]...)
				return List(items...), nil
			}
			return n.setItem(idx, value), nil
		}
		updated, err := n.items[idx].edit(p, depth+1, full, value, mode)
		if err != nil {
			return nil, err
		}
		return n.setItem(idx, updated), nil

	default:
		return nil, missing(fmt.Sprintf("cannot descend into %s", n.Kind()))
	}
}

func (n *Node) setKey(key string, value *Node) *Node {
	entries := n.Entries()
	return Map(append(entries, Entry{Key: key, Value: value})...)
}

func (n *Node) dropKey(key string) *Node {
	entries := make([]Entry, 0, len(n.keys))
	for _, e := range n.Entries() {
		if e.Key != key {
			entries = append(entries, e)
		}
	}
	return Map(entries...)
}

func (n *Node) setItem(idx int, value *Node) *Node {
	items := n.Items()
	items[idx] = value
	return List(items...)
}

// Merge deep-merges over onto base and returns the result. Maps merge key
// by key, keeping base's order and appending keys only present in over;
// any other value in over replaces the one in base.
func Merge(base, over *Node) *Node {
	if base.Kind() != KindMap || over.Kind() != KindMap {
		return orNull(over)
	}
	entries := base.Entries()
	pos := make(map[string]int, len(entries))
	for i, e := range entries {
		pos[e.Key] = i
	}
	for _, e := range over.Entries() {
		if i, ok := pos[e.Key]; ok {
			entries[i].Value = Merge(entries[i].Value, e.Value)
			continue
		}
		pos[e.Key] = len(entries)
		entries = append(entries, e)
	}
	return Map(entries...)
}
