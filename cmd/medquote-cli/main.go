// Package main is the entry point for the medquote CLI.
package main

import (
	"os"

	"medquote/cmd/medquote-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
