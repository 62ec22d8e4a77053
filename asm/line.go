package asm

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nf/sic1/subleq"
)

const (
	identifierPattern = `[_a-zA-Z][_a-zA-Z0-9]*`
	commandPattern    = `\.?` + identifierPattern
	numberPattern     = `-?[0-9]+`
	referencePattern  = `@` + identifierPattern
	offsetPattern     = `[+-][0-9]+`
	expressionPattern = `(?:` + numberPattern + `|` + referencePattern + `(?:` + offsetPattern + `)?)`

	linePattern = `^\s*(?:(` + referencePattern + `)\s*:)?` +
		`\s*(?:(` + commandPattern + `)` +
		`(\s+` + expressionPattern + `\s*(?:,?\s+` + expressionPattern + `\s*)*)?)?` +
		`(?:\s*;.*)?$`
)

var (
	lineRegexp      = regexp.MustCompile(linePattern)
	referenceRegexp = regexp.MustCompile(`^(` + referencePattern + `)(` + offsetPattern + `)?$`)
)

var commands = map[string]subleq.Command{
	"subleq": subleq.Subleq,
	".data":  subleq.Data,
}

// ParsedLine is a single line of source with its label and command, if any.
// A subleq command parsed on its own has 2 or 3 expressions; the assembler
// supplies the fall through address when the third is omitted.
type ParsedLine struct {
	Label       string
	Command     subleq.Command
	Expressions []Expression
}

// ParseLine parses one line of source. It does not resolve references.
func ParseLine(line string) (ParsedLine, error) {
	var p ParsedLine
	groups := lineRegexp.FindStringSubmatch(line)
	if groups == nil {
		return p, errorf("invalid syntax: %s", line)
	}
	p.Label = groups[1]

	name := groups[2]
	if name == "" {
		return p, nil
	}
	cmd, ok := commands[name]
	if !ok {
		return p, errorf("unknown command: %s (valid commands are: %q, %q)",
			name, subleq.Subleq, subleq.Data)
	}
	p.Command = cmd

	args := strings.Fields(strings.ReplaceAll(groups[3], ",", " "))
	switch cmd {
	case subleq.Subleq:
		if len(args) < 2 || len(args) > 3 {
			return p, errorf("invalid number of arguments for %s: %d (must be 2 or 3 arguments)", name, len(args))
		}
		for i, arg := range args {
			e, err := parseExpression(cmd, i, arg, subleq.AddrMin, subleq.AddrMax)
			if err != nil {
				return p, err
			}
			p.Expressions = append(p.Expressions, e)
		}
	case subleq.Data:
		if len(args) != 1 {
			return p, errorf("invalid number of arguments for %s: %d (must be 1 argument)", name, len(args))
		}
		e, err := parseExpression(cmd, 0, args[0], subleq.ValueMin, subleq.ValueMax)
		if err != nil {
			return p, err
		}
		p.Expressions = append(p.Expressions, e)
	}
	return p, nil
}

// parseExpression parses argument i of cmd. Numbers must lie in [min, max]
// and are stored as their two's complement byte; references are range
// checked when they are resolved.
func parseExpression(cmd subleq.Command, i int, s string, min, max int) (Expression, error) {
	if strings.HasPrefix(s, "@") {
		groups := referenceRegexp.FindStringSubmatch(s)
		if groups == nil {
			return nil, errorf("failed to parse expression: %q", s)
		}
		r := Reference{Label: groups[1]}
		if off := groups[2]; off != "" {
			n, err := strconv.Atoi(off)
			if err != nil {
				return nil, errorf("invalid offset in %s: %v", s, err)
			}
			r.Offset = n
		}
		return r, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < int64(min) || n > int64(max) {
		return nil, errorf("invalid argument %d for %s: %s (must be an integer on the range [%d, %d])",
			i+1, cmd, s, min, max)
	}
	return Literal(byte(n)), nil
}
