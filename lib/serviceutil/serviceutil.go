package serviceutil

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext returns a context that is cancelled on the first SIGINT or
// SIGTERM. After that the default handlers are restored, so a second Ctrl+C
// kills the process.
func SignalContext() context.Context {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx
}

// Fatal logs err with the given attributes and exits with status 1. A
// cancelled context is a normal shutdown and exits with status 0.
func Fatal(message string, err error, attrs ...any) {
	if errors.Is(err, context.Canceled) {
		slog.Info("shutting down", "reason", err.Error())
		os.Exit(0)
	}
	slog.Error(message, append([]any{"err", err.Error()}, attrs...)...)
	os.Exit(1)
}
