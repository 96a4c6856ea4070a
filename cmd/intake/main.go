// Package main provides the entry point for the intake CLI tool.
package main

import "github.com/docufill/intake/cmd/intake/cmd"

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
