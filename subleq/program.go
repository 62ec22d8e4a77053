package subleq

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Address and value ranges of the machine.
const (
	MemorySize = 256

	AddrMin = 0
	AddrMax = 255

	ValueMin = -128
	ValueMax = 127

	// Built-in addresses.
	AddrUserMax = 252
	AddrIn      = 253
	AddrOut     = 254
	AddrHalt    = 255

	InstructionBytes = 3
)

// Command is an assembler mnemonic.
type Command byte

const (
	NoCommand Command = iota
	Subleq
	Data
)

// Size reports the number of bytes the command occupies in memory.
func (c Command) Size() int {
	switch c {
	case Subleq:
		return InstructionBytes
	case Data:
		return 1
	default:
		return 0
	}
}

func (c Command) String() string {
	switch c {
	case Subleq:
		return "subleq"
	case Data:
		return ".data"
	default:
		return fmt.Sprintf("Command(%d)", byte(c))
	}
}

// SourceMapEntry ties the first byte of an emitted instruction or datum to
// the source line it came from.
type SourceMapEntry struct {
	Line    int // 0-based index into the assembled lines
	Command Command
	Source  string
}

// SourceMap maps addresses to the source lines that produced them.
// Only addresses that begin an instruction or datum have entries.
type SourceMap map[byte]SourceMapEntry

// Lookup returns the entry for addr, or failing that the nearest entry at a
// lower address. It reports whether the returned entry is an exact match;
// ok is false if no entry precedes addr at all.
func (m SourceMap) Lookup(addr int) (e SourceMapEntry, exact, ok bool) {
	if addr > AddrMax {
		addr = AddrMax
	}
	if addr >= 0 {
		if e, ok := m[byte(addr)]; ok {
			return e, true, true
		}
	}
	for a := addr - 1; a >= 0; a-- {
		if e, ok := m[byte(a)]; ok {
			return e, false, true
		}
	}
	return SourceMapEntry{}, false, false
}

// Addrs returns the mapped addresses in ascending order.
func (m SourceMap) Addrs() []byte {
	addrs := make([]byte, 0, len(m))
	for a := range m {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// VariableDef is a labeled .data cell that can be watched while running.
type VariableDef struct {
	Label string
	Addr  byte
}

// Program is the output of the assembler and the input of a Machine.
// It must not be modified once assembled.
type Program struct {
	Bytes     []byte
	SourceMap SourceMap
	Variables []VariableDef

	// Labels holds every symbol known when the program was assembled,
	// including the built-in addresses.
	Labels map[string]byte
}

// Builtins returns the symbols every program starts with.
func Builtins() map[string]byte {
	return map[string]byte{
		"@MAX":  AddrUserMax,
		"@IN":   AddrIn,
		"@OUT":  AddrOut,
		"@HALT": AddrHalt,
	}
}

// Hex returns the program bytes as lowercase hex pairs.
func (p *Program) Hex() string {
	return hex.EncodeToString(p.Bytes)
}

// ParseHex decodes a program produced by Hex. The result has no source map,
// variables or user labels.
func ParseHex(s string) (*Program, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("decoding program: %w", err)
	}
	if len(b) > MemorySize {
		return nil, fmt.Errorf("program is too long (%d bytes, maximum is %d)", len(b), MemorySize)
	}
	return &Program{
		Bytes:     b,
		SourceMap: SourceMap{},
		Labels:    Builtins(),
	}, nil
}

// Decompile renders bytes as a single .data line of signed values.
func Decompile(b []byte) string {
	var s strings.Builder
	s.WriteString(".data")
	for _, v := range b {
		fmt.Fprintf(&s, " %d", Signed(v))
	}
	return s.String()
}

// Signed reinterprets an unsigned byte as a two's-complement value.
func Signed(b byte) int {
	v := int(b & 0x7f)
	if b&0x80 != 0 {
		v -= 128
	}
	return v
}
