// Package main is the single-binary entrypoint for CodeForge.
package main

import "github.com/codeforge-app/codeforge/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
