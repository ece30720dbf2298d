// internal/browser/cdp/context_utils.go
package cdp

import (
	"context"
)

// CombineContext returns a context that carries the values of master (the
// chromedp target) and is cancelled when either master or op is done.
func CombineContext(master, op context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(master)

	go func() {
		select {
		case <-op.Done():
			cancel()
		case <-combined.Done():
		}
	}()

	return combined, cancel
}

// Detach returns a context that keeps the chromedp values of ctx but ignores
// its cancellation. Cleanup that must outlive a failed operation runs on it.
func Detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
