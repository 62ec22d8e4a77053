package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nf/sic1/subleq"
)

var asmFlags struct {
	out     string
	listing bool
}

var asmCmd = &cobra.Command{
	Use:   "asm program.sic1",
	Short: "Assemble a program and print its bytes as hex",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProgram(args[0], false)
		if err != nil {
			return err
		}
		if asmFlags.listing {
			writeListing(cmd.OutOrStdout(), p)
		}
		hex := p.Hex() + "\n"
		if f := asmFlags.out; f != "" {
			return os.WriteFile(f, []byte(hex), 0o644)
		}
		_, err = io.WriteString(cmd.OutOrStdout(), hex)
		return err
	},
}

func init() {
	asmCmd.Flags().StringVarP(&asmFlags.out, "out", "o", "", "write hex to `file` instead of stdout")
	asmCmd.Flags().BoolVar(&asmFlags.listing, "listing", false, "print an address listing and the variable table")
	rootCmd.AddCommand(asmCmd)
}

// writeListing prints the address, bytes and source of each instruction and
// datum in p, followed by its variables and a .data dump.
func writeListing(w io.Writer, p *subleq.Program) {
	for _, addr := range p.SourceMap.Addrs() {
		e := p.SourceMap[addr]
		end := int(addr) + e.Command.Size()
		if end > len(p.Bytes) {
			end = len(p.Bytes)
		}
		var hex []string
		for _, b := range p.Bytes[addr:end] {
			hex = append(hex, fmt.Sprintf("%.2x", b))
		}
		fmt.Fprintf(w, "%3d: %-9s %s\n", addr, strings.Join(hex, " "), strings.TrimSpace(e.Source))
	}
	if len(p.Variables) > 0 {
		fmt.Fprintln(w)
		for _, v := range p.Variables {
			fmt.Fprintf(w, "%s = %d (%d)\n", v.Label, v.Addr, subleq.Signed(p.Bytes[v.Addr]))
		}
	}
	fmt.Fprintf(w, "\n%s\n\n", subleq.Decompile(p.Bytes))
}
