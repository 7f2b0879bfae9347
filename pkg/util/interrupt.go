package util

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// WaitForInterruptWithCallback blocks until SIGINT or SIGTERM arrives or ctx
// ends, then runs callback once. A nil callback is allowed.
func WaitForInterruptWithCallback(ctx context.Context, callback func()) {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()
	if ctx.Err() != nil {
		slog.Info("Parent context ended; shutting down", "cause", context.Cause(ctx))
	} else {
		slog.Info("Shutdown signal received")
	}

	if callback != nil {
		callback()
	}
}
