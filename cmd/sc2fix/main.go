// Package main is the entry point for the sc2fix CLI application
package main

import (
	"fmt"
	"os"

	"github.com/CairBin/sc2replay-autofix/internal/cli"
)

// Version information (set during build)
var (
	Version   = "dev"
	BuildDate = "unknown"
)

func main() {
	cli.SetVersionInfo(Version, BuildDate)

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
