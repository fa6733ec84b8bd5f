package scheduler

import (
	"context"
	"time"
)

// every calls fn on each tick until ctx is done or stop is closed.
func every(ctx context.Context, interval time.Duration, stop <-chan struct{}, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn(ctx)
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}
