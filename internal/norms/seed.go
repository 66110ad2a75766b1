package norms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML document accepted by the population routine.
type SeedFile struct {
	Tables []TableSpec `yaml:"tables"`
}

// DecodeSpecs reads a SeedFile from r and validates every table.
func DecodeSpecs(r io.Reader) ([]TableSpec, error) {
	var f SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidTable, err)
	}
	seen := map[string]bool{}
	for _, s := range f.Tables {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("%w: table %q declared twice", ErrInvalidTable, s.Name)
		}
		seen[s.Name] = true
	}
	return f.Tables, nil
}

// LoadSpecs is DecodeSpecs over a file.
func LoadSpecs(path string) ([]TableSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeSpecs(f)
}

// Seed populates every spec in order and returns the stored tables. It stops
// at the first failure; tables already written stay written.
func Seed(ctx context.Context, p Populator, specs []TableSpec) ([]Table, error) {
	out := make([]Table, 0, len(specs))
	for _, s := range specs {
		tb, err := p.Populate(ctx, s)
		if err != nil {
			return out, fmt.Errorf("seed %q: %w", s.Name, err)
		}
		out = append(out, tb)
	}
	return out, nil
}
