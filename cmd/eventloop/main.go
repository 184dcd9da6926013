// Command eventloop validates, inspects and runs automation event graphs.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/eventloop/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		os.Exit(cli.ExitSuccess)
	}

	// Commands report their own failures. Anything else comes from cobra
	// (unknown command, bad arguments) and has not been printed yet.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCommandError)
	}
	os.Exit(exitErr.Code)
}
