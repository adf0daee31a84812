package strategy

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk strategy document: a list of strategies.
type File struct {
	Strategies []Strategy `yaml:"strategies"`
}

// Load reads a strategy YAML file. Unknown fields fail immediately so a
// typo cannot silently fall back to a default.
func Load(path string) (map[string]Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse strategy file: %w", err)
	}

	out := make(map[string]Strategy, len(f.Strategies))
	for _, s := range f.Strategies {
		if err := Validate(&s); err != nil {
			return nil, fmt.Errorf("strategy %q: %w", s.Name, err)
		}
		if _, dup := out[s.Name]; dup {
			return nil, fmt.Errorf("duplicate strategy name %q", s.Name)
		}
		out[s.Name] = s
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("strategy file %s defines no strategies", path)
	}

	return out, nil
}

// LoadOrDefaults loads the file when path is non-empty, otherwise
// returns the built-in strategies.
func LoadOrDefaults(path string) (map[string]Strategy, error) {
	if path == "" {
		return Defaults(), nil
	}
	return Load(path)
}
