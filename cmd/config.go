package cmd

import (
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func init() {
	tilejitCmd.AddCommand(
		&cobra.Command{
			Use:   "config",
			Short: "List the config variables and where they were set",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				tw := tablewriter.NewWriter(os.Stdout)
				tw.SetAutoFormatHeaders(false)
				tw.SetHeader([]string{"name", "value", "set by"})
				cfg.List(func(name, val, by string) {
					tw.Append([]string{name, val, by})
				})
				tw.Render()
			},
		})
}
