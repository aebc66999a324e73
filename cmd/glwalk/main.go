// Package main is the entry point for the glwalk CLI binary.
package main

import (
	"os"

	"glwalk/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
