package verify

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads suites from the named files and from every .yaml or .yml file
// under the named directories. Suites are returned in the order found.
func Load(paths ...string) ([]*Suite, error) {
	var suites []*Suite
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			s, err := LoadFile(path)
			if err != nil {
				return nil, err
			}
			suites = append(suites, s)
			continue
		}
		err = filepath.WalkDir(path, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if ext := filepath.Ext(path); ext != ".yaml" && ext != ".yml" {
				return nil
			}
			s, err := LoadFile(path)
			if err != nil {
				return err
			}
			suites = append(suites, s)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return suites, nil
}

// LoadFile reads a single suite. Unknown fields are an error.
func LoadFile(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.File = path
	if s.Name == "" {
		s.Name = filepath.Base(path)
	}
	return s, nil
}

// Parse decodes a suite from YAML.
func Parse(data []byte) (*Suite, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var s Suite
	if err := dec.Decode(&s); err != nil {
		return nil, err
	}
	for i, c := range s.Tests {
		if c.Name == "" {
			s.Tests[i].Name = fmt.Sprintf("case%d", i+1)
		}
	}
	return &s, nil
}
