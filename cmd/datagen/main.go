// Command datagen generates rows of test data from CUE profiles.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/datagen/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "datagen:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
