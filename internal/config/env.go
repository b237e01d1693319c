package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// parseEnv reads HYDRANT_* variables into cfg. A nil environment means the
// process environment.
func parseEnv(cfg *Settings, environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("%w: parse environment: %w", ErrUsage, err)
	}
	return nil
}
