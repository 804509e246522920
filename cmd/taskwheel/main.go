// Package main provides the entry point for the taskwheel CLI.
package main

import (
	"os"

	"github.com/taskwheel/taskwheel/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
