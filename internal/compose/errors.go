package compose

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigNotFound reports a missing root config file.
	ErrConfigNotFound = errors.New("config not found")
	// ErrConfigParse is matched by every ParseError.
	ErrConfigParse = errors.New("config parse error")
	// ErrConfigGroupNotFound reports an unknown group or group option.
	ErrConfigGroupNotFound = errors.New("config group not found")
	// ErrInvalidOverride reports a malformed or inapplicable override.
	ErrInvalidOverride = errors.New("invalid override")
	// ErrConfigValidation is matched by every ValidationError.
	ErrConfigValidation = errors.New("config validation failed")
)

// ParseError reports malformed content in a config file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrConfigParse) true.
func (e *ParseError) Is(target error) bool {
	return target == ErrConfigParse
}

// ValidationError reports a composed config that does not satisfy its
// schema.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config validation failed: %s", e.Message)
	}
	return fmt.Sprintf("config validation failed at %s: %s", e.Path, e.Message)
}

// Is makes errors.Is(err, ErrConfigValidation) true.
func (e *ValidationError) Is(target error) bool {
	return target == ErrConfigValidation
}
