package node

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingKey is matched by every MissingKeyError.
	ErrMissingKey = errors.New("missing key")
	// ErrInvalidPath reports a path string that cannot be parsed.
	ErrInvalidPath = errors.New("invalid path")
	// ErrKeyExists reports an insert on a path that is already present.
	ErrKeyExists = errors.New("key already exists")
	// ErrType is matched by every TypeError.
	ErrType = errors.New("type mismatch")
)

// MissingKeyError reports a lookup that walked off the tree.
type MissingKeyError struct {
	// Path is the full path that was requested.
	Path string
	// Segment is the first segment that could not be resolved.
	Segment string
	// Reason is set when the walk stopped for a reason other than an absent
	// key, such as indexing into a scalar.
	Reason string
}

func (e *MissingKeyError) Error() string {
	msg := fmt.Sprintf("missing key %q", e.Path)
	if e.Segment != "" && e.Segment != e.Path {
		msg += fmt.Sprintf(" (at %q)", e.Segment)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is makes errors.Is(err, ErrMissingKey) true.
func (e *MissingKeyError) Is(target error) bool {
	return target == ErrMissingKey
}

// TypeError reports a typed read on a node of another kind.
type TypeError struct {
	Path string
	Want Kind
	Got  Kind
}

func (e *TypeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("expected %s, got %s", e.Want, e.Got)
	}
	return fmt.Sprintf("%s: expected %s, got %s", e.Path, e.Want, e.Got)
}

// Is makes errors.Is(err, ErrType) true.
func (e *TypeError) Is(target error) bool {
	return target == ErrType
}
