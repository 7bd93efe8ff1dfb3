package main

import (
	"pav/cmd"
	applog "pav/internal/log"
	"pav/pkg/build"
)

// main initializes build information and hands over to the command tree.
// Commands load their configuration before running, so logging follows the
// configured level from the first frame on.
func main() {
	if err := build.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}

	if err := cmd.Execute(); err != nil {
		applog.Fatalf("%v", err)
	}
}
