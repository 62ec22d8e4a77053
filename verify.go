package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nf/sic1/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify suite.yaml|dir...",
	Short: "Check programs against YAML test suites",
	Long: `Verify runs every case of the given suites, printing ok, FAIL or SKIP for
each. A case passes when the program produces the expected outputs from the
case's inputs within the suite's cycle and memory budgets (by default
100000 cycles and 256 bytes).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		suites, err := verify.Load(args...)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		var all []verify.CaseResult
		for _, s := range suites {
			results := verify.Run(s)
			for _, r := range results {
				name := filepath.Base(s.File) + "/" + r.Case.Name
				switch {
				case r.Skipped:
					fmt.Fprintf(w, "SKIP %s: %s\n", name, r.SkipReason)
				case r.Err != nil:
					fmt.Fprintf(w, "FAIL %s: %v\n", name, r.Err)
				default:
					fmt.Fprintf(w, "ok   %s (%d cycles, %d bytes)\n",
						name, r.Result.Cycles, r.Result.BytesAccessed)
				}
			}
			all = append(all, results...)
		}
		stats := verify.ComputeStats(all)
		fmt.Fprintln(w, stats)
		if stats.Failed > 0 {
			return fmt.Errorf("%d of %d cases failed", stats.Failed, stats.Total)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
