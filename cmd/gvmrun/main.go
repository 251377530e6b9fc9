// gvmrun is a command-line client that runs an OpenVAS scan through a GVM
// backend and saves the resulting report.
package main

import (
	"github.com/gvmrun/gvmrun/cmd/cli"
)

// Build information - set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
