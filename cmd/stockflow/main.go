// Package main is the entry point for the stockflow CLI.
package main

import (
	"os"

	"github.com/layer-3/stockflow/cmd/stockflow/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
