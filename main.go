// Command sic1 assembles, runs, debugs and verifies programs for SIC-1, an
// 8-bit single instruction computer.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nf/sic1/asm"
	"github.com/nf/sic1/runner"
	"github.com/nf/sic1/subleq"
)

var rootCmd = &cobra.Command{
	Use:   "sic1",
	Short: "Assembler and emulator for the SIC-1 single instruction computer",
	Long: `Sic1 assembles and executes programs for SIC-1, a computer with 256 bytes
of memory and a single instruction, subleq. Source files contain one
"subleq a, b[, c]" instruction or ".data value" directive per line, with
optional "@label:" prefixes and "; comments".`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runFlags struct {
	maxCycles int
	rate      time.Duration
	hex       bool
	trace     bool
}

var runCmd = &cobra.Command{
	Use:   "run program.sic1",
	Short: "Run a program, reading input values from stdin",
	Long: `Run assembles and executes a program. Input values are read from stdin as
whitespace separated integers in [-128, 127]; each value written to @OUT is
printed on its own line.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProgram(args[0], runFlags.hex)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		con := newConsole(os.Stdin, os.Stdout)
		cfg := runner.Config{
			Input:     func() (int, bool) { return con.read(ctx) },
			Output:    con.write,
			MaxCycles: runFlags.maxCycles,
			Rate:      runFlags.rate,
			Logf:      log.Printf,
		}
		if runFlags.trace {
			cfg.State = traceState
		}
		con.start(nil)

		res, err := runner.New(cfg).Run(ctx, p)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, runner.ErrInputExhausted):
			log.Printf("input exhausted after %d cycles, %d bytes accessed", res.Cycles, res.BytesAccessed)
			return nil
		case errors.Is(err, runner.ErrCycleLimit):
			return fmt.Errorf("no halt after %d cycles", res.Cycles)
		}
		return err
	},
}

func init() {
	runCmd.Flags().IntVar(&runFlags.maxCycles, "max-cycles", 0, "stop after this many instructions (0 for no limit)")
	runCmd.Flags().DurationVar(&runFlags.rate, "rate", 0, "delay between instructions")
	runCmd.Flags().BoolVar(&runFlags.hex, "hex", false, "the program file is hex encoded bytes, not source")
	runCmd.Flags().BoolVar(&runFlags.trace, "trace", false, "log every instruction executed")
	rootCmd.AddCommand(runCmd)
}

func main() {
	log.SetPrefix("sic1: ")
	log.SetFlags(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		log.Fatal(err)
	}
}

// loadProgram reads a program from file. Files ending in .hex, or any file
// when hex is set, hold hex encoded bytes; anything else is assembled.
func loadProgram(file string, hex bool) (*subleq.Program, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	if hex || filepath.Ext(file) == ".hex" {
		p, err := subleq.ParseHex(string(b))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		return p, nil
	}
	p, err := asm.AssembleString(string(b))
	if err != nil {
		var ce *asm.CompilationError
		if errors.As(err, &ce) && ce.Line >= 0 {
			return nil, fmt.Errorf("%s:%d: %s", file, ce.Line+1, ce.Msg)
		}
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return p, nil
}

func traceState(m *subleq.Machine, k runner.StateKind) {
	s := m.State()
	log.Printf("%-5v ip=%3d cycles=%d bytes=%d  %s", k, s.IP, s.Cycles, s.BytesAccessed, s.Source)
}
