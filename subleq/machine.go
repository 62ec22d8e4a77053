// Package subleq provides an interpreter for SIC-1 programs, called Machine,
// a single instruction computer with 256 bytes of memory whose only
// instruction is "subtract and branch if less than or equal to zero".
package subleq

// Callbacks lets the owner of a Machine observe and drive its I/O.
// Every field is optional.
type Callbacks struct {
	// ReadInput is called when @IN is read. If nil, input reads as 0.
	ReadInput func() int
	// WriteOutput is called with the signed result stored to @OUT.
	WriteOutput func(value int)

	// OnWriteMemory is called for every physical memory write, including
	// the 256 writes that initialize memory.
	OnWriteMemory func(addr, value byte)
	// OnStateUpdated is called once after construction and after every step.
	OnStateUpdated func(State)
	// OnHalt is called once, when the machine stops running.
	OnHalt func(cycles, bytesAccessed int)
}

// State describes a Machine between two steps.
type State struct {
	Running bool
	IP      int
	// Target is the byte at IP. It is meaningless once halted.
	Target byte

	SourceLine int
	Source     string

	Cycles        int
	BytesAccessed int
	Variables     []Variable
}

// Variable is the current value of a watched .data cell.
type Variable struct {
	Label string
	Value int
}

// UnknownSource is the State source when no source line precedes IP.
const UnknownSource = "?"

// Machine executes a Program one subleq instruction at a time.
type Machine struct {
	prog *Program
	cb   Callbacks

	mem     [MemorySize]byte
	ip      int
	running bool

	accessed      [MemorySize]bool
	bytesAccessed int
	cycles        int
}

// NewMachine returns a Machine with the program loaded at address 0 and the
// rest of memory zeroed. It reports every initial memory write and then the
// initial state to cb.
func NewMachine(p *Program, cb Callbacks) *Machine {
	m := &Machine{prog: p, cb: cb, running: true}
	for i := range m.mem {
		var v byte
		if i < len(p.Bytes) {
			v = p.Bytes[i]
		}
		m.mem[i] = v
		if f := m.cb.OnWriteMemory; f != nil {
			f(byte(i), v)
		}
	}
	m.stateUpdated()
	return m
}

// IsRunning reports whether there is room at IP for a whole instruction.
func (m *Machine) IsRunning() bool {
	return m.ip >= 0 && m.ip+InstructionBytes < len(m.mem)
}

// Step executes the instruction at IP. It does nothing once halted.
func (m *Machine) Step() {
	if !m.IsRunning() {
		return
	}

	a := m.read(m.ip)
	b := m.read(m.ip + 1)
	c := m.read(m.ip + 2)
	m.ip += InstructionBytes

	av := m.read(int(a))
	var bv byte
	if b == AddrIn {
		m.access(AddrIn)
		if f := m.cb.ReadInput; f != nil {
			bv = byte(f())
		}
	} else {
		bv = m.read(int(b))
	}

	result := av - bv
	signed := Signed(result)
	if a == AddrOut {
		m.access(AddrOut)
		if f := m.cb.WriteOutput; f != nil {
			f(signed)
		}
	} else {
		m.write(a, result)
	}

	if signed <= 0 {
		m.ip = int(c)
	}

	m.cycles++
	m.running = m.IsRunning()
	m.stateUpdated()

	if !m.running {
		if f := m.cb.OnHalt; f != nil {
			f(m.cycles, m.bytesAccessed)
		}
	}
}

// Run steps the machine until it halts. It never returns for programs that
// loop forever; callers that need a bound should call Step themselves.
func (m *Machine) Run() {
	for m.running {
		m.Step()
	}
}

// IP returns the address of the next instruction.
func (m *Machine) IP() int { return m.ip }

// Cycles returns the number of instructions executed so far.
func (m *Machine) Cycles() int { return m.cycles }

// BytesAccessed returns the number of distinct addresses read or written.
func (m *Machine) BytesAccessed() int { return m.bytesAccessed }

// Peek returns the byte at addr without counting it as an access.
func (m *Machine) Peek(addr byte) byte { return m.mem[addr] }

// Memory returns a copy of the whole address space.
func (m *Machine) Memory() [MemorySize]byte { return m.mem }

// Program returns the program the machine was built from.
func (m *Machine) Program() *Program { return m.prog }

// State returns the machine's current state, as passed to OnStateUpdated.
func (m *Machine) State() State {
	s := State{
		Running:       m.running,
		IP:            m.ip,
		SourceLine:    0,
		Source:        UnknownSource,
		Cycles:        m.cycles,
		BytesAccessed: m.bytesAccessed,
	}
	if m.ip >= 0 && m.ip < len(m.mem) {
		s.Target = m.mem[m.ip]
	}
	if e, _, ok := m.prog.SourceMap.Lookup(m.ip); ok {
		s.SourceLine, s.Source = e.Line, e.Source
	}
	if n := len(m.prog.Variables); n > 0 {
		s.Variables = make([]Variable, n)
		for i, v := range m.prog.Variables {
			s.Variables[i] = Variable{Label: v.Label, Value: Signed(m.mem[v.Addr])}
		}
	}
	return s
}

func (m *Machine) stateUpdated() {
	if f := m.cb.OnStateUpdated; f != nil {
		f(m.State())
	}
}

func (m *Machine) access(addr byte) {
	if !m.accessed[addr] {
		m.accessed[addr] = true
		m.bytesAccessed++
	}
}

func (m *Machine) read(addr int) byte {
	a := byte(addr)
	m.access(a)
	return m.mem[a]
}

func (m *Machine) write(addr, v byte) {
	m.access(addr)
	m.mem[addr] = v
	if f := m.cb.OnWriteMemory; f != nil {
		f(addr, v)
	}
}
