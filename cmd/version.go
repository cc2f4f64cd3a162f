package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leftmike/tilejit/sql"
)

func init() {
	tilejitCmd.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number of Tilejit",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Println(sql.Version())
			},
		})
}
