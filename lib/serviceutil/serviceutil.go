package serviceutil

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext returns a context that is cancelled once Ctrl+C is pressed.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Fatal logs the error and exits the process.
func Fatal(message string, err error) {
	if err == nil {
		slog.Error(message)
	} else {
		slog.Error(message, "err", err.Error())
	}
	os.Exit(1)
}
