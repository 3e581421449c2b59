// Package main is the entry point for the streamrepair application.
package main

import (
	"os"

	"github.com/jmylchreest/streamrepair/cmd/streamrepair/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
