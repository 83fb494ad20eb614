package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yazzzuk/azure-service-bus-reader/internal/cli"
	"github.com/yazzzuk/azure-service-bus-reader/internal/connstring"
	"github.com/yazzzuk/azure-service-bus-reader/internal/peek"
)

var version = "dev"

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.Execute(ctx, version)
	if err == nil {
		return exitOK
	}

	// An interrupt mid-peek is a normal way to stop the tool.
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		fmt.Println("\nInterrupted.")
		return exitOK
	}

	fmt.Fprintf(os.Stderr, "[error] %v\n", err)

	var usageErr *cli.UsageError
	var missingKey *connstring.MissingKeyError
	switch {
	case errors.As(err, &usageErr),
		errors.As(err, &missingKey),
		errors.Is(err, peek.ErrNoQueue):
		return exitUsage
	}
	return exitError
}
