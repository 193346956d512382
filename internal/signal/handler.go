// Package signal turns SIGINT and SIGTERM into context cancellation so a
// running session can flush its log sinks and export what it has.
package signal

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Watch returns a context that is cancelled on the first SIGINT or SIGTERM.
// onInterrupt, if non-nil, runs with the received signal before the context
// is cancelled. The returned stop function releases the signal handler and
// cancels the context; call it when the watched work is done.
func Watch(parent context.Context, onInterrupt func(os.Signal)) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			if onInterrupt != nil {
				onInterrupt(sig)
			}
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
