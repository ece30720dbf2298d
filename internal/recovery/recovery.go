// Package recovery implements the fatal boundary every unrecoverable
// interaction failure is funneled through. Handling a failure documents it,
// terminates the session and ends the process; it never retries.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/das-group/HOSIT/api/schemas"
	"github.com/das-group/HOSIT/internal/session"
)

// DefaultExitCode is the process status used for a fatal session.
const DefaultExitCode = 1

// Protocol implements schemas.FailureHandler for one session.
type Protocol struct {
	sc       *session.Context
	logger   *zap.Logger
	exit     func(code int)
	exitCode int
	// closeTimeout bounds cleanup once the caller's context is already done.
	closeTimeout time.Duration
}

var _ schemas.FailureHandler = (*Protocol)(nil)

// Option configures a Protocol.
type Option func(*Protocol)

// WithExit replaces os.Exit. A nil func disables process termination.
func WithExit(exit func(code int)) Option {
	return func(p *Protocol) {
		p.exit = exit
	}
}

// WithExitCode sets the non-zero status the process terminates with.
func WithExitCode(code int) Option {
	return func(p *Protocol) {
		if code != 0 {
			p.exitCode = code
		}
	}
}

// New creates the protocol for sc.
func New(sc *session.Context, opts ...Option) *Protocol {
	p := &Protocol{
		sc:           sc,
		logger:       sc.Logger.Named("recovery"),
		exit:         os.Exit,
		exitCode:     DefaultExitCode,
		closeTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle documents failure, terminates the session and exits. Only the first
// failure of a session is handled; later calls return ErrFatal immediately.
// The returned error wraps session.ErrFatal and is only observed when exit
// is disabled.
func (p *Protocol) Handle(ctx context.Context, source schemas.Screenshotter, failure error) error {
	if !p.sc.Fatal.Set(failure) {
		return fmt.Errorf("recovery: %w", session.ErrFatal)
	}
	p.logger.Error("Unrecoverable interaction failure, terminating session.", zap.Error(failure))

	// Cleanup must complete even when the failure was a deadline on ctx.
	cleanupCtx := context.WithoutCancel(ctx)

	shot := p.screenshot(cleanupCtx, source)
	if err := p.sc.Log(cleanupCtx, "error", describe(failure), shot); err != nil {
		p.logger.Warn("Failed to persist error entry.", zap.Error(err))
	}
	if marker, ok := p.sc.Sink.(schemas.ErrorMarker); ok {
		if err := marker.MarkSessionFailed(cleanupCtx, p.sc.ID); err != nil {
			p.logger.Warn("Failed to mark session as failed.", zap.Error(err))
		}
	}

	p.closeTab(cleanupCtx)
	_ = p.sc.Logger.Sync()

	if p.exit != nil {
		p.exit(p.exitCode)
	}
	return fmt.Errorf("recovery: %w: %w", session.ErrFatal, failure)
}

func (p *Protocol) screenshot(ctx context.Context, source schemas.Screenshotter) []byte {
	if source == nil {
		return nil
	}
	shot, err := source.Screenshot(ctx, false)
	if err != nil {
		p.logger.Warn("Error screenshot failed.", zap.Error(err))
		return nil
	}
	return shot
}

func (p *Protocol) closeTab(ctx context.Context) {
	tab := p.sc.Tab()
	if tab == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, p.closeTimeout)
	defer cancel()
	if err := tab.Close(ctx); err != nil {
		p.logger.Warn("Failed to close session tab.", zap.Error(err))
	}
}

// describe renders the failure as the entry value. Context errors are named
// so a timed out session is distinguishable from a missing element.
func describe(err error) string {
	switch {
	case err == nil:
		return "unknown error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout: " + err.Error()
	default:
		return err.Error()
	}
}
