package runtime

import (
	"context"
	"os/signal"
	"syscall"
)

// SignalContext returns the root context for a service process, cancelled
// on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
