package subleq

import (
	"bytes"
	"fmt"
	"reflect"
	"testing"
)

func TestNewMachine(t *testing.T) {
	for _, size := range []int{0, 1, 7, AddrUserMax, MemorySize} {
		t.Run(fmt.Sprint(size), func(t *testing.T) {
			var (
				writes []byte
				states []State
			)
			p := &Program{Bytes: bytes.Repeat([]byte{1}, size)}
			m := NewMachine(p, Callbacks{
				OnWriteMemory: func(addr, v byte) {
					if int(addr) != len(writes) {
						t.Errorf("write to %.2x, want %.2x", addr, len(writes))
					}
					writes = append(writes, v)
				},
				OnStateUpdated: func(s State) { states = append(states, s) },
			})
			if len(writes) != MemorySize {
				t.Fatalf("got %d memory writes, want %d", len(writes), MemorySize)
			}
			mem := m.Memory()
			for i := range mem {
				w := byte(0)
				if i < size {
					w = 1
				}
				if g := mem[i]; g != w {
					t.Errorf("mem[%.2x] == %.2x, want %.2x", i, g, w)
				}
				if g := writes[i]; g != w {
					t.Errorf("write[%.2x] == %.2x, want %.2x", i, g, w)
				}
			}
			if len(states) != 1 {
				t.Fatalf("got %d state updates, want 1", len(states))
			}
			s := states[0]
			if !s.Running || s.IP != 0 || s.Cycles != 0 || s.BytesAccessed != 0 {
				t.Errorf("initial state is %+v", s)
			}
			if s.Source != UnknownSource {
				t.Errorf("initial source is %q, want %q", s.Source, UnknownSource)
			}
		})
	}
}

func TestStep(t *testing.T) {
	c := newStepTestCase
	for i, c := range []*stepTestCase{
		// Positive result falls through.
		c(10, 11, 30).mem(10, 7, 2).want().mem(10, 5).ip(3),
		// Zero and negative results branch.
		c(10, 11, 30).mem(10, 7, 7).want().mem(10, 0).ip(30),
		c(10, 11, 30).mem(10, 0, 5).want().mem(10, 251).ip(30),
		// Wraparound in both directions.
		c(10, 11, 30).mem(10, 0x80, 1).want().mem(10, 0x7f).ip(3),
		c(10, 11, 30).mem(10, 0x7f, 0xff).want().mem(10, 0x80).ip(30),
		// Subtracting a cell from itself clears it.
		c(10, 10, 9).mem(10, 42).want().mem(10, 0).ip(9),
		// Input replaces the read of @IN.
		c(10, AddrIn, 30).mem(10, 3).input(1).want().mem(10, 2).ip(3),
		c(10, AddrIn, 30).mem(10, 3).input(-4).want().mem(10, 7).ip(3),
		c(10, AddrIn, 30).mem(10, 3).want().mem(10, 3).ip(3),
		// Output replaces the write to @OUT.
		c(AddrOut, 11, 30).mem(11, 4).want().output(-4).ip(30),
		c(AddrOut, 11, 30).mem(AddrOut, 9).mem(11, 4).want().output(5).ip(3),
		// Writing @IN and reading @OUT are plain memory accesses.
		c(AddrIn, 11, 30).mem(AddrIn, 9).mem(11, 4).want().mem(AddrIn, 5).ip(3),
		c(10, AddrOut, 30).mem(10, 9).mem(AddrOut, 4).want().mem(10, 5).ip(3),
		// The branch target may leave the machine halted.
		c(10, 10, AddrHalt).want().ip(AddrHalt).halted(),
		c(10, 10, 253).want().ip(253).halted(),
		c(10, 10, 252).want().ip(252),
	} {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			var out []int
			in := c.in
			m := NewMachine(&Program{Bytes: c.m[:]}, Callbacks{
				ReadInput: func() int {
					if len(in) == 0 {
						t.Fatal("unexpected read of @IN")
					}
					v := in[0]
					in = in[1:]
					return v
				},
				WriteOutput: func(v int) { out = append(out, v) },
			})
			if c.in == nil {
				m.cb.ReadInput = nil
			}
			m.Step()
			if g, w := m.Memory(), c.w; g != w {
				for i := range g {
					if g[i] != w[i] {
						t.Errorf("mem[%.2x] = %.2x, want %.2x", i, g[i], w[i])
					}
				}
			}
			if g, w := m.IP(), c.wantIP; g != w {
				t.Errorf("IP is %d, want %d", g, w)
			}
			if g, w := m.IsRunning(), !c.wantHalt; g != w {
				t.Errorf("IsRunning() = %v, want %v", g, w)
			}
			if g, w := out, c.out; !reflect.DeepEqual(g, w) {
				t.Errorf("output is %v, want %v", g, w)
			}
			if g := m.Cycles(); g != 1 {
				t.Errorf("Cycles() = %d, want 1", g)
			}
		})
	}
}

type stepTestCase struct {
	m, w     [MemorySize]byte
	set      *[MemorySize]byte
	in       []int
	out      []int
	wantIP   int
	wantHalt bool
}

func newStepTestCase(a, b, c byte) *stepTestCase {
	tc := &stepTestCase{}
	tc.m[0], tc.m[1], tc.m[2] = a, b, c
	tc.w = tc.m
	tc.set = &tc.m
	return tc
}

func (c *stepTestCase) mem(addr byte, bytes ...byte) *stepTestCase {
	copy(c.set[addr:], bytes)
	if c.set == &c.m {
		copy(c.w[addr:], bytes)
	}
	return c
}

func (c *stepTestCase) input(v ...int) *stepTestCase {
	c.in = append(c.in, v...)
	return c
}

func (c *stepTestCase) want() *stepTestCase {
	c.set = &c.w
	return c
}

func (c *stepTestCase) output(v ...int) *stepTestCase {
	c.out = append(c.out, v...)
	return c
}

func (c *stepTestCase) ip(addr int) *stepTestCase {
	c.wantIP = addr
	return c
}

func (c *stepTestCase) halted() *stepTestCase {
	c.wantHalt = true
	return c
}

// negationLoop is:
//
//	@loop:
//	subleq @OUT, @IN
//	subleq @zero, @zero, @loop
//
//	@zero: .data 0
func negationLoop() *Program {
	return &Program{
		Bytes: []byte{AddrOut, AddrIn, 3, 6, 6, 0, 0},
		SourceMap: SourceMap{
			0: {Line: 1, Command: Subleq, Source: "subleq @OUT, @IN"},
			3: {Line: 2, Command: Subleq, Source: "subleq @zero, @zero, @loop"},
			6: {Line: 4, Command: Data, Source: "@zero: .data 0"},
		},
		Variables: []VariableDef{{Label: "@zero", Addr: 6}},
	}
}

func TestNegationLoop(t *testing.T) {
	var (
		in     = []int{4, 5, 100, 101}
		out    []int
		halted bool
	)
	m := NewMachine(negationLoop(), Callbacks{
		ReadInput: func() int {
			v := in[0]
			in = in[1:]
			return v
		},
		WriteOutput: func(v int) { out = append(out, v) },
		OnHalt:      func(int, int) { halted = true },
	})
	for i := 0; i < 8; i++ {
		m.Step()
	}
	if want := []int{-4, -5, -100, -101}; !reflect.DeepEqual(out, want) {
		t.Errorf("output is %v, want %v", out, want)
	}
	if !m.IsRunning() || halted {
		t.Errorf("negation loop halted")
	}
	if g, w := m.Cycles(), 8; g != w {
		t.Errorf("Cycles() = %d, want %d", g, w)
	}
	// 0-6 plus @IN and @OUT.
	if g, w := m.BytesAccessed(), 9; g != w {
		t.Errorf("BytesAccessed() = %d, want %d", g, w)
	}
}

func TestStateUpdates(t *testing.T) {
	var states []State
	m := NewMachine(negationLoop(), Callbacks{
		ReadInput:      func() int { return 5 },
		OnStateUpdated: func(s State) { states = append(states, s) },
	})
	m.Step()
	m.Step()

	want := []State{
		{Running: true, IP: 0, Target: AddrOut, SourceLine: 1, Source: "subleq @OUT, @IN",
			Variables: []Variable{{"@zero", 0}}},
		{Running: true, IP: 3, Target: 6, SourceLine: 2, Source: "subleq @zero, @zero, @loop",
			Cycles: 1, BytesAccessed: 5, Variables: []Variable{{"@zero", 0}}},
		{Running: true, IP: 0, Target: AddrOut, SourceLine: 1, Source: "subleq @OUT, @IN",
			Cycles: 2, BytesAccessed: 9, Variables: []Variable{{"@zero", 0}}},
	}
	if !reflect.DeepEqual(states, want) {
		t.Errorf("states are\n\t%+v\nwant\n\t%+v", states, want)
	}
}

func TestStateVariablesSigned(t *testing.T) {
	// subleq @x, @five
	// @x: .data 0
	// @five: .data 5
	p := &Program{
		Bytes:     []byte{3, 4, 0, 0, 5},
		SourceMap: SourceMap{0: {Line: 0, Command: Subleq, Source: "subleq @x, @five"}},
		Variables: []VariableDef{{Label: "@x", Addr: 3}, {Label: "@five", Addr: 4}},
	}
	m := NewMachine(p, Callbacks{})
	m.Step()
	if g := m.Peek(3); g != 251 {
		t.Errorf("mem[3] = %d, want 251", g)
	}
	want := []Variable{{"@x", -5}, {"@five", 5}}
	if g := m.State().Variables; !reflect.DeepEqual(g, want) {
		t.Errorf("variables are %v, want %v", g, want)
	}
}

func TestStateSourceFallback(t *testing.T) {
	p := &Program{
		// Branches into the middle of the data that follows the instruction.
		Bytes:     []byte{3, 3, 4, 0, 3, 3, 0},
		SourceMap: SourceMap{0: {Line: 2, Command: Subleq, Source: "subleq @a, @a, @a+1"}},
	}
	m := NewMachine(p, Callbacks{})
	m.Step()
	s := m.State()
	if s.IP != 4 || s.SourceLine != 2 || s.Source != "subleq @a, @a, @a+1" {
		t.Errorf("state is %+v, want nearest preceding source line", s)
	}

	m = NewMachine(&Program{Bytes: []byte{0, 0, 0}}, Callbacks{})
	if s := m.State(); s.SourceLine != 0 || s.Source != UnknownSource {
		t.Errorf("state with empty source map is %+v", s)
	}
}

func TestBytesAccessedDistinct(t *testing.T) {
	// @loop: subleq @z, @z, @loop
	// @z: .data 0
	m := NewMachine(&Program{Bytes: []byte{3, 3, 0, 0}}, Callbacks{})
	for i := 0; i < 10; i++ {
		m.Step()
	}
	if g, w := m.BytesAccessed(), 4; g != w {
		t.Errorf("BytesAccessed() = %d, want %d", g, w)
	}
	if g, w := m.Cycles(), 10; g != w {
		t.Errorf("Cycles() = %d, want %d", g, w)
	}
}

func TestHalt(t *testing.T) {
	var halts []int
	// subleq @z, @z, @HALT
	// @z: .data 0
	m := NewMachine(&Program{Bytes: []byte{3, 3, AddrHalt, 0}}, Callbacks{
		OnHalt: func(cycles, bytesAccessed int) { halts = append(halts, cycles, bytesAccessed) },
	})
	m.Run()
	if m.IsRunning() {
		t.Fatal("IsRunning() after Run")
	}
	if want := []int{1, 4}; !reflect.DeepEqual(halts, want) {
		t.Errorf("OnHalt got %v, want %v", halts, want)
	}

	before, mem := m.State(), m.Memory()
	m.Step()
	m.Run()
	if after := m.State(); !reflect.DeepEqual(before, after) {
		t.Errorf("state changed after halt:\n\t%+v\nwant\n\t%+v", after, before)
	}
	if m.Memory() != mem {
		t.Errorf("memory changed after halt")
	}
	if len(halts) != 2 {
		t.Errorf("OnHalt called %d times, want 1", len(halts)/2)
	}
}

func TestRunSelfModifying(t *testing.T) {
	// The first instruction rewrites the second instruction's branch
	// target to 252, where a final instruction falls through to 255.
	p := &Program{Bytes: []byte{
		5, 7, 3,
		8, 8, 0,
		0, 4, 0,
	}}
	p.Bytes = append(p.Bytes, make([]byte, 252-len(p.Bytes))...)
	p.Bytes = append(p.Bytes, 7, 8, 0)

	var writes int
	m := NewMachine(p, Callbacks{OnWriteMemory: func(byte, byte) { writes++ }})
	writes = 0
	m.Run()
	if m.IsRunning() {
		t.Fatal("machine still running")
	}
	if g, w := m.Peek(5), byte(252); g != w {
		t.Errorf("mem[5] = %d, want %d", g, w)
	}
	if g, w := m.IP(), 255; g != w {
		t.Errorf("IP() = %d, want %d", g, w)
	}
	if g, w := m.Cycles(), 3; g != w {
		t.Errorf("Cycles() = %d, want %d", g, w)
	}
	if g, w := writes, 3; g != w {
		t.Errorf("got %d memory writes, want %d", g, w)
	}
}
