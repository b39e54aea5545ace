package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// main is the entrypoint for the detect bridge. Exactly one JSON line is
// written to stdout; diagnostics go to stderr. An interrupt cancels the
// running inference, including the project entry point's process group.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
