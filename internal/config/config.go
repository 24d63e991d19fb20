// Package config loads the checker configuration file: the dispatcher's
// behavior knobs plus the strictness assumed for worlds that do not set
// their own.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sablelang/sable/internal/dispatch"
	"github.com/sablelang/sable/internal/symbols"
)

// Config mirrors the YAML configuration document.
type Config struct {
	// StrictKeywordArgs reports a trailing hash standing in for keyword
	// arguments instead of silently unpacking it.
	StrictKeywordArgs bool `yaml:"strict_keyword_args,omitempty"`
	// SuggestUnsafe names the cast autocorrects should offer in place of
	// the default `T.must` wrapping, for codebases that prefer an escape
	// hatch such as T.unsafe.
	SuggestUnsafe string `yaml:"suggest_unsafe,omitempty"`
	// RequiredAncestors extends method lookup through requires_ancestor
	// declarations on modules.
	RequiredAncestors bool `yaml:"required_ancestors,omitempty"`
	// MaxSuggestions caps did-you-mean candidates per error. Zero keeps
	// the built-in default; -1 disables suggestions entirely.
	MaxSuggestions int `yaml:"max_suggestions,omitempty"`
	// DefaultStrictness applies to worlds without a strictness of their
	// own: untyped, typed, or strict.
	DefaultStrictness string `yaml:"default_strictness,omitempty"`
}

// Default is the configuration used when no file is given.
func Default() *Config {
	return &Config{DefaultStrictness: symbols.StrictnessTyped.String()}
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes and validates a configuration document. The path appears in
// error messages only.
func Parse(data []byte, path string) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate(path string) error {
	if c.DefaultStrictness != "" {
		if _, err := symbols.ParseStrictness(c.DefaultStrictness); err != nil {
			return fmt.Errorf("%s: default_strictness: %w", path, err)
		}
	}
	if c.MaxSuggestions < -1 {
		return fmt.Errorf("%s: max_suggestions must be >= -1", path)
	}
	return nil
}

// DispatchOptions lowers the configuration onto the dispatcher.
func (c *Config) DispatchOptions() dispatch.Options {
	return dispatch.Options{
		StrictKeywordArgs: c.StrictKeywordArgs,
		SuggestUnsafe:     c.SuggestUnsafe,
		RequiredAncestors: c.RequiredAncestors,
		MaxSuggestions:    c.MaxSuggestions,
	}
}

// Strictness returns the parsed default strictness level.
func (c *Config) Strictness() symbols.Strictness {
	s, err := symbols.ParseStrictness(c.DefaultStrictness)
	if err != nil {
		return symbols.StrictnessTyped
	}
	return s
}
