package config

import (
	"errors"
	"fmt"

	"dario.cat/mergo"
)

// settingsBuilder collects settings layers; later layers win.
type settingsBuilder struct {
	layers []*Settings
	args   []string
	err    error
}

func newSettingsBuilder() *settingsBuilder {
	return &settingsBuilder{layers: make([]*Settings, 0, 3)}
}

func (b *settingsBuilder) withDefaults() *settingsBuilder {
	b.layers = append(b.layers, Defaults())
	return b
}

func (b *settingsBuilder) withEnv(environ map[string]string) *settingsBuilder {
	cfg := &Settings{}
	if err := parseEnv(cfg, environ); err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}
	b.layers = append(b.layers, cfg)
	return b
}

func (b *settingsBuilder) withFlags(name string, args []string) *settingsBuilder {
	cfg, rest, err := parseFlags(name, args)
	if err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}
	b.layers = append(b.layers, cfg)
	b.args = rest
	return b
}

func (b *settingsBuilder) build() (*Settings, []string, error) {
	if b.err != nil {
		return nil, nil, b.err
	}
	cfg := new(Settings)
	for _, layer := range b.layers {
		if err := mergo.Merge(cfg, layer, mergo.WithOverride); err != nil {
			return nil, nil, fmt.Errorf("merge settings: %w", err)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}
	return cfg, b.args, nil
}
