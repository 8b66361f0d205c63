package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"faceswap/internal/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for rejected input (bad arguments, wrong job state, unknown
// job) and 1 for everything else.
func exitCode(err error) int {
	switch services.KindOf(err) {
	case services.KindInvalidArgument, services.KindInvalidState, services.KindNotFound:
		return 2
	default:
		return 1
	}
}
