package main

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/howeyc/fsnotify"
	"github.com/spf13/cobra"

	"github.com/nf/sic1/runner"
	"github.com/nf/sic1/subleq"
)

// devMode runs srcFile and re-assembles and restarts it whenever the file
// changes. With debug set, the program runs under the interactive
// debugger; otherwise it uses the console.
func devMode(ctx context.Context, srcFile string, debug bool, cfg runner.Config) error {
	srcFile = filepath.Clean(srcFile)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Watch(filepath.Dir(srcFile)); err != nil {
		return err
	}

	cfg.Dev = true
	cfg.Logf = log.Printf

	var (
		r   *runner.Runner
		dbg *debugger
		con *console
	)
	if debug {
		dbg = newDebugger()
		cfg.Input = dbg.readInput
		cfg.Output = dbg.writeOutput
		cfg.State = dbg.StateFunc
		r = runner.New(cfg)
		dbg.r = r
		log.SetPrefix("")
		log.SetOutput(dbg.log)
		go func() {
			if err := dbg.Run(); err != nil {
				log.Fatalf("debug: %v", err)
			}
			log.SetOutput(os.Stderr)
			log.SetPrefix("sic1: ")
			r.Debug("exit", 0)
		}()
	} else {
		con = newConsole(os.Stdin, os.Stdout)
		cfg.Input = con.poll
		cfg.Output = con.write
		r = runner.New(cfg)
		con.start(func() { r.Debug("cont", 0) })
	}

	progCh := make(chan *subleq.Program)
	go func() {
		started := false
		build := time.After(1 * time.Millisecond)
		for {
			select {
			case <-build:
				log.Printf("dev: build %s", filepath.Base(srcFile))
				p, err := loadProgram(srcFile, false)
				if err != nil {
					log.Printf("dev: %v", err)
					break
				}
				if dbg != nil {
					dbg.setSymbols(programSymbols(p))
				}
				if !started {
					log.Printf("dev: start")
					select {
					case progCh <- p:
					case <-ctx.Done():
						return
					}
					started = true
				} else {
					log.Printf("dev: reset")
					r.Swap(p)
				}
			case ev := <-watcher.Event:
				if ev.Name == srcFile && !ev.IsAttrib() {
					build = time.After(100 * time.Millisecond)
				}
			case err := <-watcher.Error:
				log.Printf("dev: watcher: %v", err)
			case <-ctx.Done():
				return
			}
		}
	}()

	var p *subleq.Program
	select {
	case p = <-progCh:
	case <-ctx.Done():
		return ctx.Err()
	}
	_, err = r.Run(ctx, p)
	if dbg != nil {
		dbg.app.Stop()
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

var devFlags struct {
	maxCycles int
	rate      time.Duration
}

var devCmd = &cobra.Command{
	Use:   "dev program.sic1",
	Short: "Run a program, restarting it whenever the source file changes",
	Long: `Dev runs a program like the run command, but keeps going after the program
halts. Whenever the source file changes it is assembled again and the new
program is started from the beginning. Input typed after the program has run
out resumes it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return devMode(cmd.Context(), args[0], false, devConfig())
	},
}

var debugCmd = &cobra.Command{
	Use:   "debug program.sic1",
	Short: "Run a program under the interactive debugger",
	Long: `Debug runs a program in a terminal debugger that shows the current
instruction, its source line, the program's variables and any watched
addresses, and reloads the program whenever the source file changes.

Commands:
  break, b <@label|addr>   pause when execution reaches addr
  clear                    remove the breakpoint
  watch, w <@label|addr>   show the value at addr
  in <values...>           queue input values
  pause, p                 pause execution
  cont, c                  continue execution
  step, s                  execute one instruction
  reset, r                 restart the program
  exit                     quit`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return devMode(cmd.Context(), args[0], true, devConfig())
	},
}

func devConfig() runner.Config {
	return runner.Config{
		MaxCycles: devFlags.maxCycles,
		Rate:      devFlags.rate,
	}
}

func init() {
	for _, c := range []*cobra.Command{devCmd, debugCmd} {
		c.Flags().IntVar(&devFlags.maxCycles, "max-cycles", 0, "pause after this many instructions (0 for no limit)")
		c.Flags().DurationVar(&devFlags.rate, "rate", 0, "delay between instructions")
		rootCmd.AddCommand(c)
	}
}
