package schemas

import "context"

// Screenshotter captures the current rendering of a page, frame or element.
type Screenshotter interface {
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
}

// TabCloser closes the browser tab a session is bound to.
type TabCloser interface {
	Close(ctx context.Context) error
}

// LogSink receives structured log entries. A nil LogSink means logging is disabled.
type LogSink interface {
	NewLog(ctx context.Context, entry LogEntry) error
}

// ErrorMarker is implemented by sinks that can flag a whole session as failed.
type ErrorMarker interface {
	MarkSessionFailed(ctx context.Context, sessionID string) error
}

// FailureHandler is the single fatal boundary for interaction failures. The
// source is screenshotted for diagnostics before the session is terminated.
// Implementations return an error only when the process exit is stubbed out.
type FailureHandler interface {
	Handle(ctx context.Context, source Screenshotter, err error) error
}
