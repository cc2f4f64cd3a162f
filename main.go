package main

import (
	"os"

	"github.com/leftmike/tilejit/cmd"
)

func main() {
	if cmd.Execute() != nil {
		os.Exit(1)
	}
}
