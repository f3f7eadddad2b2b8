//go:build !windows

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// forwardTriggerSignal turns SIGUSR1 into an immediate poll pass.
func forwardTriggerSignal(ctx context.Context, trigger func()) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGUSR1)
	defer signal.Stop(sig)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			trigger()
		}
	}
}
