package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/leftmike/tilejit/flags"
)

var (
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Load demo tables and execute a compiled query against them",
		Args:  cobra.NoArgs,
		RunE:  runRun,
	}

	workloadName = "join"
	workloadRows = 20
	prefetch     = false
	noVectorized = false
)

func init() {
	fs := runCmd.Flags()
	fs.StringVarP(&workloadName, "workload", "w", workloadName,
		"`workload` to run: join, update, or aggregate")
	fs.IntVarP(&workloadRows, "rows", "n", workloadRows, "number of rows in the left table")
	fs.BoolVar(&prefetch, "prefetch", prefetch, "prefetch hash table buckets in hash joins")
	fs.BoolVar(&noVectorized, "no-vectorized", noVectorized,
		"scan one tuple at a time instead of in batches")

	tilejitCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("prefetch") {
		flgs.SetFlag(flags.HashJoinPrefetch, prefetch)
	}
	if noVectorized {
		flgs.SetFlag(flags.VectorizedScan, false)
	}
	return runWorkload(os.Stdout, workloadName, workloadRows, flgs, *vectorSize)
}
