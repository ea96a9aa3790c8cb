// Command sieve builds, evaluates, translates and URL-encodes schema-aware
// record filters.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/sieve/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands print their own diagnostics; anything else is reported here.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
