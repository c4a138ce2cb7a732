// Package main provides the timepivot command-line interface.
package main

import (
	"os"

	"github.com/raphaelgruber/timepivot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
