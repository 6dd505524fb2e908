// Package main provides the entry point for the gitorigin CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/gitorigin/cmd/gitorigin/commands"
)

func main() {
	err := commands.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
