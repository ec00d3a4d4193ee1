package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// Cancellation already surfaces through the run summary.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "scrubber: %v\n", err)
		}
		os.Exit(1)
	}
}
