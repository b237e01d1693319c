// Package config loads the settings of the hydrant tool itself: where the
// config tree lives, which root config to compose, where run directories go
// and how much to log.
//
// Settings are layered in priority order:
// 1. Built-in defaults
// 2. Environment variables (HYDRANT_*)
// 3. CLI flags
//
// Each level overrides the previous one, so CLI flags take precedence.
// Arguments that are not flags are returned untouched; they are the config
// overrides handled by package compose.
package config
