package verify

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nf/sic1/asm"
	"github.com/nf/sic1/subleq"
)

// Suite is a YAML file of test cases for one program.
//
// The program is given by exactly one of Source (inline assembly),
// SourceFile (path to assembly, relative to the suite file), or Program
// (hex encoded bytes).
type Suite struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	Source     string `yaml:"source,omitempty"`
	SourceFile string `yaml:"source_file,omitempty"`
	Program    string `yaml:"program,omitempty"`

	MaxCycles int `yaml:"max_cycles,omitempty"`
	MaxBytes  int `yaml:"max_bytes,omitempty"`

	Tests []Case `yaml:"tests"`

	// File is the path the suite was loaded from, if any.
	File string `yaml:"-"`
}

// Case is a single input sequence and the outputs it must produce.
type Case struct {
	Name   string `yaml:"name"`
	Input  []int  `yaml:"input,omitempty"`
	Output []int  `yaml:"output"`
	Skip   any    `yaml:"skip,omitempty"` // bool or reason string
}

// IsSkipped reports whether the case should be skipped, and why.
func (c *Case) IsSkipped() (bool, string) {
	switch v := c.Skip.(type) {
	case bool:
		if v {
			return true, "skipped"
		}
	case string:
		return true, v
	}
	return false, ""
}

// Limits returns the suite's budgets, with defaults filled in.
func (s *Suite) Limits() Limits {
	l := Limits{MaxCycles: s.MaxCycles, MaxBytes: s.MaxBytes}
	if l.MaxCycles <= 0 {
		l.MaxCycles = DefaultMaxCycles
	}
	if l.MaxBytes <= 0 {
		l.MaxBytes = DefaultMaxBytes
	}
	return l
}

// Assemble builds the program under test.
func (s *Suite) Assemble() (*subleq.Program, error) {
	n := 0
	for _, v := range []string{s.Source, s.SourceFile, s.Program} {
		if v != "" {
			n++
		}
	}
	switch {
	case n == 0:
		return nil, errors.New("suite has no source, source_file or program")
	case n > 1:
		return nil, errors.New("suite must have only one of source, source_file or program")
	}

	if s.Program != "" {
		return subleq.ParseHex(s.Program)
	}
	src := s.Source
	if f := s.SourceFile; f != "" {
		if !filepath.IsAbs(f) && s.File != "" {
			f = filepath.Join(filepath.Dir(s.File), f)
		}
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		src = string(b)
	}
	p, err := asm.AssembleString(src)
	if err != nil {
		return nil, fmt.Errorf("assembling: %w", err)
	}
	return p, nil
}
