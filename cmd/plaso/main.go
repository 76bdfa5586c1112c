// Package main implements the timeline extraction command line tool. It
// collects a source, extracts timestamped events with the registered
// parsers and writes them to a SQLite timeline database.
package main

import (
	"fmt"
	"os"
	"runtime"

	// Embedded zone database, so timezone resolution works on hosts
	// without tzdata installed.
	_ "time/tzdata"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "plaso"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := newRootCommand().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
