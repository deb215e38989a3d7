package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chatrelay/internal/envsetup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var stepErr *envsetup.StepError
	if errors.As(err, &stepErr) && stepErr.ExitCode > 0 {
		os.Exit(stepErr.ExitCode)
	}
	os.Exit(1)
}
