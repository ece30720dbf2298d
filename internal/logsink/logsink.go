// Package logsink provides destinations for the structured entries a session produces.
package logsink

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/das-group/HOSIT/api/schemas"
)

// ZapSink writes entries to a zap logger. Screenshots are reported by size only.
type ZapSink struct {
	logger *zap.Logger
}

var _ schemas.LogSink = (*ZapSink)(nil)

// NewZapSink creates a sink writing to logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger.Named("logsink")}
}

// NewLog implements schemas.LogSink.
func (z *ZapSink) NewLog(_ context.Context, e schemas.LogEntry) error {
	z.logger.Info(e.Key,
		zap.String("session_id", e.SessionID),
		zap.String("entry_id", e.ID),
		zap.String("value", e.Value),
		zap.Int("screenshot_bytes", len(e.Screenshot)),
		zap.Time("created_at", e.CreatedAt),
	)
	return nil
}

// MarkSessionFailed implements schemas.ErrorMarker.
func (z *ZapSink) MarkSessionFailed(_ context.Context, sessionID string) error {
	z.logger.Error("Session marked as failed.", zap.String("session_id", sessionID))
	return nil
}

// Multi fans entries out to several sinks. Every sink is attempted; failures are joined.
type Multi []schemas.LogSink

var _ schemas.LogSink = Multi(nil)

// NewLog implements schemas.LogSink.
func (m Multi) NewLog(ctx context.Context, e schemas.LogEntry) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.NewLog(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MarkSessionFailed forwards to every member that supports it.
func (m Multi) MarkSessionFailed(ctx context.Context, sessionID string) error {
	var errs []error
	for _, s := range m {
		if em, ok := s.(schemas.ErrorMarker); ok {
			if err := em.MarkSessionFailed(ctx, sessionID); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
