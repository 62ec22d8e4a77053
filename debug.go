package main

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/nf/sic1/runner"
	"github.com/nf/sic1/subleq"
)

// redrawInterval limits how often a running machine repaints the screen.
const redrawInterval = 50 * time.Millisecond

type debugger struct {
	r *runner.Runner

	log   *tview.TextView
	watch *tview.TextView
	state *tview.TextView
	input *tview.InputField
	cols  *tview.Flex
	rows  *tview.Flex
	app   *tview.Application

	lastDraw time.Time // only touched by StateFunc
	stopped  atomic.Bool

	mu      sync.Mutex
	syms    symbols
	brk     *symbol
	watches []symbol
	pending []int
}

func (d *debugger) symbols() symbols {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.syms
}

func (d *debugger) setSymbols(s symbols) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.syms = s
}

func newDebugger() *debugger {
	d := &debugger{
		log: tview.NewTextView().
			SetMaxLines(1000),
		watch: tview.NewTextView().
			SetWrap(false).
			SetTextAlign(tview.AlignRight),
		state: tview.NewTextView().
			SetWrap(false),
		input: tview.NewInputField(),
		cols:  tview.NewFlex(),
		rows: tview.NewFlex().
			SetDirection(tview.FlexRow),
		app: tview.NewApplication(),
	}
	d.log.SetChangedFunc(func() { d.app.Draw() })
	d.watch.SetBackgroundColor(tcell.ColorDarkBlue)
	d.state.SetBackgroundColor(tcell.ColorDarkGrey)
	d.input.SetLabel("> ")
	d.cols.
		AddItem(d.watch, 0, 1, false).
		AddItem(d.log, 0, 2, false)
	d.rows.
		AddItem(d.cols, 0, 1, false).
		AddItem(d.state, 3, 0, false).
		AddItem(d.input, 1, 0, true)
	d.app.SetRoot(d.rows, true)

	d.input.SetAutocompleteFunc(func(t string) (entries []string) {
		if cmd, arg, ok := strings.Cut(t, " "); ok {
			switch cmd {
			case "b", "break", "w", "watch":
				for _, s := range d.symbols().withLabelPrefix(arg) {
					entries = append(entries, cmd+" "+s.label)
				}
			}
		}
		return
	})
	d.input.SetAutocompletedFunc(func(t string, index, src int) bool {
		if src != tview.AutocompletedNavigate {
			d.input.SetText(t)
		}
		return src == tview.AutocompletedEnter || src == tview.AutocompletedClick
	})
	d.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		cmd := strings.TrimSpace(d.input.GetText())
		if cmd == "" {
			return
		}
		d.input.SetText("")
		d.command(cmd)
	})
	return d
}

func (d *debugger) command(line string) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "exit", "quit", "q":
		d.app.Stop()
	case "b", "break":
		if arg == "" {
			log.Print("break: missing address")
			return
		}
		s, ok := d.symbols().resolve(arg)
		if !ok {
			log.Printf("invalid address %q", arg)
			return
		}
		d.mu.Lock()
		d.brk = &s
		d.mu.Unlock()
		d.r.Debug("break", s.addr)
	case "clear":
		d.mu.Lock()
		d.brk = nil
		d.mu.Unlock()
		d.r.Debug("clear", 0)
	case "w", "watch":
		s, ok := d.symbols().resolve(arg)
		if !ok {
			log.Printf("invalid address %q", arg)
			return
		}
		d.mu.Lock()
		d.watches = append(d.watches, s)
		d.mu.Unlock()
		log.Printf("watching %v", s)
	case "in":
		var vs []int
		for _, f := range strings.Fields(arg) {
			v, err := strconv.Atoi(f)
			if err != nil || v < subleq.ValueMin || v > subleq.ValueMax {
				log.Printf("invalid input %q", f)
				return
			}
			vs = append(vs, v)
		}
		d.mu.Lock()
		d.pending = append(d.pending, vs...)
		n := len(d.pending)
		d.mu.Unlock()
		log.Printf("%d input values queued", n)
	default:
		d.r.Debug(cmd, 0)
	}
}

func (d *debugger) Run() error {
	defer d.stopped.Store(true)
	return d.app.Run()
}

// readInput supplies values queued with the "in" command.
func (d *debugger) readInput() (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pending) == 0 {
		return 0, false
	}
	v := d.pending[0]
	d.pending = d.pending[1:]
	return v, true
}

func (d *debugger) writeOutput(v int) {
	log.Printf("out: %d", v)
}

func (d *debugger) StateFunc(m *subleq.Machine, k runner.StateKind) {
	if d.stopped.Load() {
		return
	}
	if k == runner.RunState {
		if time.Since(d.lastDraw) < redrawInterval {
			return
		}
	}
	d.lastDraw = time.Now()

	var (
		watch = d.watchContent(m)
		state string
	)
	if k != runner.ClearState && k != runner.QuietState {
		state = stateMsg(d.symbols(), m, k)
	}
	d.app.QueueUpdateDraw(func() {
		switch k {
		case runner.RunState, runner.ClearState:
			d.state.SetTextColor(tcell.ColorBlack)
			d.state.SetBackgroundColor(tcell.ColorDarkGrey)
		case runner.BreakState:
			d.state.SetTextColor(tcell.ColorYellow)
			d.state.SetBackgroundColor(tcell.ColorDarkBlue)
		case runner.PauseState:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkBlue)
		case runner.HaltState, runner.LimitState:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkRed)
		}
		d.watch.SetText(watch)
		if state != "" {
			d.state.SetText(state)
		}
	})
}

func stateMsg(syms symbols, m *subleq.Machine, k runner.StateKind) string {
	s := m.State()
	kind := "       "
	switch k {
	case runner.BreakState:
		kind = "[break]"
	case runner.PauseState:
		kind = "[pause]"
	case runner.HaltState:
		kind = "[HALT!]"
	case runner.LimitState:
		kind = "[limit]"
	}
	var ipSym string
	if s.Running {
		if ls := syms.forAddr(byte(s.IP)); len(ls) > 0 {
			ipSym = ls[0].label + " -> "
		}
	}
	line := "?"
	if s.Source != subleq.UnknownSource {
		line = strconv.Itoa(s.SourceLine + 1)
	}
	return fmt.Sprintf("%.2x %s %s%s\nline %s: %s\ncycles: %d  bytes: %d\n",
		s.IP, kind, ipSym, operands(syms, m, s), line, strings.TrimSpace(s.Source),
		s.Cycles, s.BytesAccessed)
}

// operands renders the instruction at IP with its operands labeled.
func operands(syms symbols, m *subleq.Machine, s subleq.State) string {
	if !s.Running {
		return ""
	}
	var b strings.Builder
	b.WriteString("subleq")
	for i := 0; i < subleq.InstructionBytes; i++ {
		addr := m.Peek(byte(s.IP + i))
		if i > 0 {
			b.WriteByte(',')
		}
		if ls := syms.forAddr(addr); len(ls) > 0 {
			fmt.Fprintf(&b, " %s", ls[0].label)
		} else {
			fmt.Fprintf(&b, " %d", addr)
		}
	}
	return b.String()
}

func (d *debugger) watchContent(m *subleq.Machine) string {
	s := m.State()
	d.mu.Lock()
	defer d.mu.Unlock()
	var b strings.Builder
	if s := d.brk; s != nil {
		fmt.Fprintf(&b, "%v brk!\n", *s)
	}
	for _, v := range s.Variables {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %4d", v.Label, v.Value)
	}
	for _, w := range d.watches {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%v %4d", w, subleq.Signed(m.Peek(w.addr)))
	}
	if n := len(d.pending); n > 0 {
		fmt.Fprintf(&b, "\n\nin: %v", d.pending)
	}
	return b.String()
}
