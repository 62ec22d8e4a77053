package asm

import "fmt"

// Expression is an operand as parsed from source: a Literal byte, or a
// Reference to a label that is resolved once every label is known.
type Expression interface {
	isExpression()
	String() string
}

// Literal is a number operand, already range checked and stored as the
// byte that will be emitted.
type Literal byte

// Reference is a label operand with an optional offset, like "@loop+3".
type Reference struct {
	Label  string
	Offset int
}

func (Literal) isExpression()   {}
func (Reference) isExpression() {}

func (l Literal) String() string { return fmt.Sprint(byte(l)) }

func (r Reference) String() string {
	if r.Offset == 0 {
		return r.Label
	}
	return fmt.Sprintf("%s%+d", r.Label, r.Offset)
}
