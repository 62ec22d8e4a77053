package asm

import "fmt"

// CompilationError is returned by Assemble when the source is invalid.
type CompilationError struct {
	Line   int // 0-based index of the offending line, or -1
	Source string
	Msg    string
}

func (e *CompilationError) Error() string {
	if e.Line < 0 {
		return e.Msg
	}
	return fmt.Sprintf("line %d: %s", e.Line+1, e.Msg)
}

func errorf(format string, args ...any) *CompilationError {
	return &CompilationError{Line: -1, Msg: fmt.Sprintf(format, args...)}
}

// atLine attaches the line context to err if it does not have one already.
func atLine(err error, line int, source string) error {
	if e, ok := err.(*CompilationError); ok && e.Line < 0 {
		e.Line, e.Source = line, source
	}
	return err
}
