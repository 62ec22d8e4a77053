package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/nf/sic1/subleq"
)

// console feeds whitespace separated integers from a reader to a program
// and prints its output one value per line.
type console struct {
	in     io.Reader
	out    io.Writer
	prompt bool

	values chan int // closed at end of input
}

func newConsole(in *os.File, out io.Writer) *console {
	return &console{
		in:     in,
		out:    out,
		prompt: term.IsTerminal(int(in.Fd())),
		values: make(chan int, subleq.MemorySize),
	}
}

// start begins reading input. If notify is non-nil it is called after each
// line of values is queued.
func (c *console) start(notify func()) {
	go c.readInput(notify)
}

func (c *console) readInput(notify func()) {
	defer close(c.values)
	s := bufio.NewScanner(c.in)
	for {
		if c.prompt {
			fmt.Fprint(c.out, "in> ")
		}
		if !s.Scan() {
			break
		}
		queued := false
		for _, f := range strings.Fields(s.Text()) {
			v, err := strconv.Atoi(f)
			if err != nil || v < subleq.ValueMin || v > subleq.ValueMax {
				log.Printf("ignoring input %q: must be an integer on the range [%d, %d]",
					f, subleq.ValueMin, subleq.ValueMax)
				continue
			}
			c.values <- v
			queued = true
		}
		if queued && notify != nil {
			notify()
		}
	}
	if err := s.Err(); err != nil {
		log.Printf("reading input: %v", err)
	}
}

// read waits for the next input value.
func (c *console) read(ctx context.Context) (int, bool) {
	select {
	case v, ok := <-c.values:
		return v, ok
	case <-ctx.Done():
		return 0, false
	}
}

// poll returns the next input value if one is ready.
func (c *console) poll() (int, bool) {
	select {
	case v, ok := <-c.values:
		return v, ok
	default:
		return 0, false
	}
}

func (c *console) write(v int) {
	fmt.Fprintln(c.out, v)
}
