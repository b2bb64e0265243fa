// Command herald applies rule effects to Differential revisions.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/herald/internal/cli"
	"github.com/roach88/herald/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "herald: %v\n", err)
		os.Exit(cli.ExitCommandError)
	}

	if err := cli.NewRootCommand(cfg).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "herald: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
