// Package main is the entry point for the vidgraph command.
package main

import (
	"os"

	"github.com/obinnaokechukwu/vidgraph/cmd/vidgraph/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
