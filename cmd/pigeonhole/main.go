package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"pigeonhole/internal/services"
)

const (
	exitOK       = 0
	exitInternal = 1
	exitNotFound = 2
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		if errors.Is(err, services.ErrNotFound) {
			os.Exit(exitNotFound)
		}
		os.Exit(exitInternal)
	}
	os.Exit(exitOK)
}
