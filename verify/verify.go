// Package verify checks SIC-1 programs against expected input/output
// sequences within cycle and memory budgets.
package verify

import (
	"fmt"

	"github.com/nf/sic1/subleq"
)

const (
	DefaultMaxCycles = 100000
	DefaultMaxBytes  = subleq.MemorySize
)

// Limits bounds a verification run. A program fails once it has executed
// more than MaxCycles instructions or touched more than MaxBytes addresses.
type Limits struct {
	MaxCycles int
	MaxBytes  int
}

// Result is what a verification run cost, whether or not it succeeded.
type Result struct {
	Cycles        int
	BytesAccessed int
}

// MismatchError reports the first output that differed from the expected
// value.
type MismatchError struct {
	Context  string
	Index    int
	Expected int
	Actual   int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("incorrect output produced during %s (expected %d but got %d instead)",
		e.Context, e.Expected, e.Actual)
}

// LimitError reports a program that exceeded its cycle or memory budget.
type LimitError struct {
	Context string
	Limits
	Cycles        int
	BytesAccessed int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("execution during %s did not complete within %d cycles and %d bytes",
		e.Context, e.MaxCycles, e.MaxBytes)
}

// HaltError reports a program that halted before producing every output.
type HaltError struct {
	Context  string
	Produced int
	Expected int
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("program halted during %s after producing %d of %d outputs",
		e.Context, e.Produced, e.Expected)
}

// Program runs p on inputs until it has produced len(expected) outputs.
// Reads past the end of inputs return 0. The name identifies the run in
// errors.
func Program(name string, p *subleq.Program, inputs, expected []int, lim Limits) (Result, error) {
	var (
		in       int
		out      int
		mismatch *MismatchError
	)
	m := subleq.NewMachine(p, subleq.Callbacks{
		ReadInput: func() int {
			if in >= len(inputs) {
				return 0
			}
			v := inputs[in]
			in++
			return v
		},
		WriteOutput: func(v int) {
			i := out
			out++
			if mismatch == nil && v != expected[i] {
				mismatch = &MismatchError{
					Context:  name,
					Index:    i,
					Expected: expected[i],
					Actual:   v,
				}
			}
		},
	})

	for mismatch == nil && out < len(expected) &&
		m.Cycles() <= lim.MaxCycles && m.BytesAccessed() <= lim.MaxBytes {
		if !m.IsRunning() {
			return result(m), &HaltError{Context: name, Produced: out, Expected: len(expected)}
		}
		m.Step()
	}

	if m.Cycles() > lim.MaxCycles || m.BytesAccessed() > lim.MaxBytes {
		return result(m), &LimitError{
			Context:       name,
			Limits:        lim,
			Cycles:        m.Cycles(),
			BytesAccessed: m.BytesAccessed(),
		}
	}
	if mismatch != nil {
		return result(m), mismatch
	}
	return result(m), nil
}

func result(m *subleq.Machine) Result {
	return Result{Cycles: m.Cycles(), BytesAccessed: m.BytesAccessed()}
}

// CaseResult is the outcome of one case of a suite.
type CaseResult struct {
	Suite      *Suite
	Case       Case
	Skipped    bool
	SkipReason string
	Result     Result
	Err        error
}

func (r CaseResult) Passed() bool { return !r.Skipped && r.Err == nil }

// Run verifies every case of s. If the program cannot be built, every
// case fails with that error.
func Run(s *Suite) []CaseResult {
	p, perr := s.Assemble()
	lim := s.Limits()
	results := make([]CaseResult, len(s.Tests))
	for i, c := range s.Tests {
		r := CaseResult{Suite: s, Case: c}
		if skipped, reason := c.IsSkipped(); skipped {
			r.Skipped, r.SkipReason = true, reason
		} else if perr != nil {
			r.Err = perr
		} else {
			r.Result, r.Err = Program(c.Name, p, c.Input, c.Output, lim)
		}
		results[i] = r
	}
	return results
}

// Stats counts the outcomes of a set of cases.
type Stats struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

func ComputeStats(results []CaseResult) Stats {
	s := Stats{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Skipped:
			s.Skipped++
		case r.Err == nil:
			s.Passed++
		default:
			s.Failed++
		}
	}
	return s
}

func (s Stats) String() string {
	return fmt.Sprintf("%d passed, %d failed, %d skipped (%d total)",
		s.Passed, s.Failed, s.Skipped, s.Total)
}
