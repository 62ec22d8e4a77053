// Package runner drives a subleq.Machine: it feeds it input, bounds how long
// it runs, and lets a debugger pause, step, and hot swap the program.
package runner

import (
	"context"
	"errors"
	"time"

	"github.com/nf/sic1/subleq"
)

var (
	ErrCycleLimit     = errors.New("cycle limit reached")
	ErrInputExhausted = errors.New("input exhausted")
)

// StateKind says why a StateFunc is being called.
type StateKind int

const (
	RunState   StateKind = iota // an instruction was executed
	QuietState                  // a command changed something but not the machine
	BreakState                  // paused at a breakpoint
	PauseState                  // paused by a command or by running out of input
	HaltState                   // the machine halted
	LimitState                  // the cycle limit was reached
	ClearState                  // execution resumed, or a new machine was loaded
)

func (k StateKind) String() string {
	switch k {
	case RunState:
		return "run"
	case QuietState:
		return "quiet"
	case BreakState:
		return "break"
	case PauseState:
		return "pause"
	case HaltState:
		return "halt"
	case LimitState:
		return "limit"
	case ClearState:
		return "clear"
	}
	return "unknown"
}

// StateFunc observes the machine. It is called from the goroutine that
// called Run, so it may inspect m but must not keep it.
type StateFunc func(m *subleq.Machine, k StateKind)

// Config holds the options for a Runner. The zero value runs a program at
// full speed to completion with no input and discards its output.
type Config struct {
	// Input supplies the next value read from @IN.
	// It returns false when there is no more input.
	Input func() (int, bool)
	// Output receives every value written to @OUT.
	Output func(int)
	State  StateFunc

	// MaxCycles bounds how many instructions run before the limit is
	// reported. Zero means no limit.
	MaxCycles int
	// Rate is the delay between instructions.
	Rate time.Duration

	// Dev keeps Run going after the program halts, runs out of input or
	// reaches the cycle limit, so that Debug and Swap can be used.
	Dev bool

	Logf func(format string, args ...any)
}

// Result summarizes a run.
type Result struct {
	Cycles        int
	BytesAccessed int
	Halted        bool
}

type Runner struct {
	cfg Config

	debug    chan debugCmd
	swap     chan *subleq.Program
	swapDone chan bool
	done     chan bool
}

type debugCmd struct {
	cmd  string
	addr byte
}

func New(cfg Config) *Runner {
	return &Runner{
		cfg:      cfg,
		debug:    make(chan debugCmd),
		swap:     make(chan *subleq.Program),
		swapDone: make(chan bool),
		done:     make(chan bool),
	}
}

// Debug sends a command to the running machine. Commands are
//
//	break, b   pause whenever IP reaches addr
//	clear      remove the breakpoint
//	pause, p   pause execution
//	cont, c    resume execution
//	step, s    execute one instruction while paused
//	reset, r   restart the current program
//	exit       stop and return from Run
//
// Debug returns immediately if Run has returned.
func (r *Runner) Debug(cmd string, addr byte) {
	select {
	case r.debug <- debugCmd{cmd, addr}:
	case <-r.done:
	}
}

// Swap replaces the running program and restarts execution from address 0.
// The breakpoint is kept. Swap may only be used in dev mode.
func (r *Runner) Swap(p *subleq.Program) {
	if !r.cfg.Dev {
		panic("Swap called while not running in dev mode")
	}
	select {
	case r.swap <- p:
		<-r.swapDone
	case <-r.done:
	}
}

// Run executes p until it halts, the context is done, or, in dev mode, the
// exit command is received. Run may be called only once per Runner.
func (r *Runner) Run(ctx context.Context, p *subleq.Program) (Result, error) {
	defer close(r.done)

	x := &execution{Runner: r, brk: -1}
	x.load(p)

	now := make(chan time.Time)
	close(now)

	for {
		var next <-chan time.Time
		switch {
		case x.paused:
			// Wait for a command.
		case r.cfg.Rate > 0:
			next = time.After(r.cfg.Rate)
		default:
			next = now
		}
		select {
		case <-ctx.Done():
			return x.result(), ctx.Err()
		case c := <-r.debug:
			if c.cmd == "exit" {
				return x.result(), nil
			}
			done, err := x.command(c)
			if done || err != nil {
				return x.result(), err
			}
		case p := <-r.swap:
			x.load(p)
			x.paused = false
			x.state(ClearState)
			r.swapDone <- true
		case <-next:
			done, err := x.step(RunState)
			if done || err != nil {
				return x.result(), err
			}
		}
	}
}

// execution is the state of a single Run.
type execution struct {
	*Runner

	prog *subleq.Program
	m    *subleq.Machine

	paused bool
	brk    int  // breakpoint address, or -1
	resume bool // skip the breakpoint at the current IP once
	limit  int  // cycle count at which the limit applies
	in     int  // value returned by the next @IN read
}

func (x *execution) load(p *subleq.Program) {
	x.prog = p
	x.resume = false
	x.m = subleq.NewMachine(p, subleq.Callbacks{
		ReadInput:   func() int { return x.in },
		WriteOutput: x.cfg.Output,
		OnHalt: func(cycles, bytesAccessed int) {
			x.logf("halted after %d cycles, %d bytes accessed", cycles, bytesAccessed)
		},
	})
	x.limit = x.cfg.MaxCycles
}

func (x *execution) command(c debugCmd) (done bool, err error) {
	switch c.cmd {
	case "break", "b":
		x.brk = int(c.addr)
		x.logf("set break %.2x", c.addr)
		x.state(QuietState)
	case "clear":
		x.brk = -1
		x.logf("cleared break")
		x.state(QuietState)
	case "pause", "p":
		if !x.paused {
			x.paused = true
			x.state(PauseState)
		}
	case "cont", "c":
		if !x.m.IsRunning() {
			x.logf("machine is halted")
			return false, nil
		}
		if x.paused {
			x.paused = false
			x.resume = true
			x.extendLimit()
			x.state(ClearState)
		}
	case "step", "s":
		if !x.paused {
			x.logf("step: not paused")
			return false, nil
		}
		if !x.m.IsRunning() {
			x.logf("machine is halted")
			return false, nil
		}
		x.resume = true
		x.extendLimit()
		done, err = x.step(PauseState)
		x.paused = true
		return done, err
	case "reset", "r":
		x.load(x.prog)
		x.paused = false
		x.state(ClearState)
	default:
		x.logf("unknown command %q", c.cmd)
	}
	return false, nil
}

// step executes the next instruction, reporting kind afterwards unless the
// machine stopped for another reason. It returns done when Run should
// return.
func (x *execution) step(kind StateKind) (done bool, err error) {
	m := x.m
	ip := m.IP()
	if ip == x.brk && !x.resume {
		x.paused = true
		x.state(BreakState)
		return false, nil
	}
	x.resume = false

	if in := x.cfg.Input; in != nil && m.Peek(byte(ip+1)) == subleq.AddrIn {
		v, ok := in()
		if !ok {
			if !x.cfg.Dev {
				return true, ErrInputExhausted
			}
			x.logf("input exhausted")
			x.paused = true
			x.state(PauseState)
			return false, nil
		}
		x.in = v
	}

	m.Step()

	switch {
	case !m.IsRunning():
		x.state(HaltState)
		if !x.cfg.Dev {
			return true, nil
		}
		x.paused = true
	case x.limit > 0 && m.Cycles() >= x.limit:
		x.state(LimitState)
		if !x.cfg.Dev {
			return true, ErrCycleLimit
		}
		x.logf("cycle limit reached after %d cycles", m.Cycles())
		x.paused = true
	default:
		x.state(kind)
	}
	return false, nil
}

// extendLimit allows another MaxCycles instructions from now.
func (x *execution) extendLimit() {
	if x.cfg.MaxCycles > 0 && x.m.Cycles() >= x.limit {
		x.limit = x.m.Cycles() + x.cfg.MaxCycles
	}
}

func (x *execution) result() Result {
	return Result{
		Cycles:        x.m.Cycles(),
		BytesAccessed: x.m.BytesAccessed(),
		Halted:        !x.m.IsRunning(),
	}
}

func (x *execution) state(k StateKind) {
	if f := x.cfg.State; f != nil {
		f(x.m, k)
	}
}

func (r *Runner) logf(format string, args ...any) {
	if f := r.cfg.Logf; f != nil {
		f(format, args...)
	}
}
