// Package interrupt ties contexts to OS termination signals.
package interrupt

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Signals that stop the proxy.
var Signals = []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}

// TerminationContext returns a copy of ctx that is canceled on the first
// termination signal. A second signal is not caught anymore and kills the
// process the default way.
func TerminationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(ctx, Signals...)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx, stop
}
