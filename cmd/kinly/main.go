// Package main is the single-binary entrypoint for Kinly.
package main

import "github.com/kinly-app/kinly/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
