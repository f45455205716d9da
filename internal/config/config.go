// Package config loads the YAML configuration file cmd/dexopt reads at
// startup, using the teacher's transitively-pulled goccy/go-yaml
// decoder (no part of the original repo used YAML directly, but it is
// in the teacher's own dependency graph, and the resolver's knobs are
// exactly the kind of small, human-edited document that library
// targets). ApplySet additionally round-trips Config through JSON and
// tidwall/sjson to support --set command-line overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/tidwall/sjson"
)

// CheckerConfig mirrors typecheck.Options so it can be decoded from
// YAML without the config package importing typecheck.
type CheckerConfig struct {
	ValidateAccess       bool `yaml:"validate_access" json:"validate_access"`
	VerifyMoves          bool `yaml:"verify_moves" json:"verify_moves"`
	CheckNoOverwriteThis bool `yaml:"check_no_overwrite_this" json:"check_no_overwrite_this"`
}

// ResolverConfig mirrors the resolver package's functional options.
type ResolverConfig struct {
	RefineToExternal  bool     `yaml:"refine_to_external" json:"refine_to_external"`
	Desuperify        bool     `yaml:"desuperify" json:"desuperify"`
	SpecializeRType   bool     `yaml:"specialize_rtype" json:"specialize_rtype"`
	ExcludedExternals []string `yaml:"excluded_externals" json:"excluded_externals"`
}

// Config is the top-level document cmd/dexopt reads.
type Config struct {
	Checker    CheckerConfig  `yaml:"checker" json:"checker"`
	Resolver   ResolverConfig `yaml:"resolver" json:"resolver"`
	Workers    int            `yaml:"workers" json:"workers"`
	MinSDKPath string         `yaml:"min_sdk_path" json:"min_sdk_path"`
	ReportPath string         `yaml:"report_path" json:"report_path"`
}

// Default returns the configuration dexopt runs with when no file is
// given: desuperify on (matching the resolver package's own default),
// every other optional pass off, one worker per CPU left to the
// pipeline package to decide (Workers == 0 means "let the pipeline
// choose").
func Default() Config {
	return Config{
		Checker: CheckerConfig{
			ValidateAccess:       true,
			VerifyMoves:          true,
			CheckNoOverwriteThis: true,
		},
		Resolver: ResolverConfig{
			Desuperify: true,
		},
	}
}

// Load reads and decodes a YAML config file, starting from Default()
// so a partial file only overrides the fields it sets.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// ApplySet patches cfg with "path=value" overrides from the command
// line, e.g. "resolver.specialize_rtype=true" or "workers=4", without
// requiring a full YAML rewrite. Each value is parsed as JSON first
// (so true/false/numbers come through typed) and falls back to a raw
// string if that fails.
func ApplySet(cfg Config, sets []string) (Config, error) {
	if len(sets) == 0 {
		return cfg, nil
	}
	doc, err := json.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("config: marshaling for --set: %w", err)
	}
	out := string(doc)
	for _, kv := range sets {
		path, value, ok := splitSet(kv)
		if !ok {
			return cfg, fmt.Errorf("config: malformed --set %q, want path=value", kv)
		}
		var typed any
		if err := json.Unmarshal([]byte(value), &typed); err != nil {
			typed = value
		}
		out, err = sjson.Set(out, path, typed)
		if err != nil {
			return cfg, fmt.Errorf("config: applying --set %q: %w", kv, err)
		}
	}
	var patched Config
	if err := json.Unmarshal([]byte(out), &patched); err != nil {
		return cfg, fmt.Errorf("config: decoding patched config: %w", err)
	}
	return patched, nil
}

func splitSet(kv string) (path, value string, ok bool) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:], true
		}
	}
	return "", "", false
}
