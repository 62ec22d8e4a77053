// Package asm implements the SIC-1 assembler, which turns source lines like
//
//	@loop: subleq @OUT, @IN, @loop
//
// into a subleq.Program.
//
// Assembly takes two passes. The first lays out every instruction and
// directive and records label addresses; the second resolves label
// references to bytes.
package asm

import (
	"strings"

	"github.com/nf/sic1/subleq"
)

// Assemble compiles lines of source into a program.
// Any error it returns is a *CompilationError.
func Assemble(lines []string) (*subleq.Program, error) {
	a := newAssembler()
	if err := a.pass1(lines); err != nil {
		return nil, err
	}
	b, err := a.pass2()
	if err != nil {
		return nil, err
	}
	return &subleq.Program{
		Bytes:     b,
		SourceMap: a.sourceMap,
		Variables: a.variables(),
		Labels:    a.labels,
	}, nil
}

// AssembleString compiles newline separated source.
func AssembleString(src string) (*subleq.Program, error) {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	return Assemble(strings.Split(src, "\n"))
}

type assembler struct {
	address   int
	labels    map[string]byte
	addrLabel map[byte]string
	exprs     []pendingExpr
	sourceMap subleq.SourceMap
}

// pendingExpr is an expression waiting for pass 2, with the line it
// came from for error reporting.
type pendingExpr struct {
	Expression
	line   int
	source string
}

func newAssembler() *assembler {
	return &assembler{
		labels:    subleq.Builtins(),
		addrLabel: make(map[byte]string),
		sourceMap: make(subleq.SourceMap),
	}
}

func (a *assembler) pass1(lines []string) error {
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		p, err := ParseLine(line)
		if err != nil {
			return atLine(err, i, line)
		}

		if l := p.Label; l != "" {
			if addr, exists := a.labels[l]; exists {
				return atLine(errorf("label already defined: %s (%d)", l, addr), i, line)
			}
			a.labels[l] = byte(a.address)
			a.addrLabel[byte(a.address)] = l
		}

		if p.Command == subleq.NoCommand {
			continue
		}

		start := a.address
		next := start + p.Command.Size()
		for _, e := range p.Expressions {
			a.exprs = append(a.exprs, pendingExpr{e, i, line})
		}
		if p.Command == subleq.Subleq && len(p.Expressions) < 3 {
			a.exprs = append(a.exprs, pendingExpr{Literal(byte(next)), i, line})
		}
		if next > subleq.AddrUserMax {
			return atLine(errorf("program is too long (maximum size is %d bytes, but program is at least %d bytes long)",
				subleq.AddrUserMax, next), i, line)
		}
		if next != start {
			a.sourceMap[byte(start)] = subleq.SourceMapEntry{
				Line:    i,
				Command: p.Command,
				Source:  line,
			}
			a.address = next
		}
	}
	return nil
}

func (a *assembler) pass2() ([]byte, error) {
	b := make([]byte, 0, len(a.exprs))
	for _, e := range a.exprs {
		var v int
		switch x := e.Expression.(type) {
		case Literal:
			v = int(x)
		case Reference:
			addr, ok := a.labels[x.Label]
			if !ok {
				return nil, atLine(errorf("undefined reference: %s", x.Label), e.line, e.source)
			}
			v = int(addr) + x.Offset
		}
		if v < subleq.AddrMin || v > subleq.AddrMax {
			return nil, atLine(errorf("address %q (%d) is outside of valid range of [%d, %d]",
				e.Expression, v, subleq.AddrMin, subleq.AddrMax), e.line, e.source)
		}
		b = append(b, byte(v))
	}
	return b, nil
}

// variables returns the labeled .data cells in address order.
func (a *assembler) variables() []subleq.VariableDef {
	var vars []subleq.VariableDef
	for _, addr := range a.sourceMap.Addrs() {
		if a.sourceMap[addr].Command != subleq.Data {
			continue
		}
		if l, ok := a.addrLabel[addr]; ok {
			vars = append(vars, subleq.VariableDef{Label: l, Addr: addr})
		}
	}
	return vars
}
