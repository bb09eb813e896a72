package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Load reads, decodes, env-fills and validates the config at path.
// Unknown keys are rejected so typos surface at startup, not silently.
func Load(path string) (*Config, error) {
	cfg, err := Parse(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes the file without env overlay or validation.
// Watch() uses it to vet a candidate before applying.
func Parse(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	jb, _, err := coerceToJSONBytes(path, b)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}
	return &cfg, nil
}
