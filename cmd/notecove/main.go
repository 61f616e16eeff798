// Package main provides the entry point for the notecove CLI.
package main

import (
	"os"

	"github.com/notecove/notecove/cmd/notecove/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
