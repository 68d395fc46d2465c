package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// An interrupt already printed the partial report; keep the exit quiet.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "romst:", err)
		}
		os.Exit(1)
	}
}
