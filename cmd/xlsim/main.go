// Command xlsim optimizes and simulates IR packages.
package main

import (
	"fmt"
	"os"

	"github.com/cchan/xlsynth/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
