//go:build windows

package main

import "context"

func forwardTriggerSignal(ctx context.Context, trigger func()) {
	<-ctx.Done()
}
