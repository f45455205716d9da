// Command dexopt runs Dex bytecode type inference and reference
// resolution over a fixture file from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/dexopt/typecore/cmd/dexopt/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
