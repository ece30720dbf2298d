// Package session holds the state shared by every component of one automated
// browsing run. It replaces ambient globals: components receive a *Context at
// construction and read or write only through it.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/das-group/HOSIT/api/schemas"
	"github.com/das-group/HOSIT/internal/identity"
	"github.com/das-group/HOSIT/internal/random"
)

// ErrFatal is returned by operations attempted after the session was terminated.
var ErrFatal = errors.New("session is fatally terminated")

// FatalFlag is write-once. Once set, no further engine operation may run.
type FatalFlag struct {
	set    atomic.Bool
	mu     sync.Mutex
	reason error
}

// Set marks the flag. It returns true only for the call that flipped it.
func (f *FatalFlag) Set(reason error) bool {
	if !f.set.CompareAndSwap(false, true) {
		return false
	}
	f.mu.Lock()
	f.reason = reason
	f.mu.Unlock()
	return true
}

// IsSet reports whether the session has been terminated.
func (f *FatalFlag) IsSet() bool {
	return f.set.Load()
}

// Reason returns the error that terminated the session, if any.
func (f *FatalFlag) Reason() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reason
}

// Context is the explicit session context.
type Context struct {
	ID       string
	Identity *identity.Identity
	Random   *random.Engine
	Logger   *zap.Logger
	Fatal    *FatalFlag

	// Sink may be nil, which disables structured log entries.
	Sink schemas.LogSink

	tabMu sync.Mutex
	tab   schemas.TabCloser

	// acted is cleared by the focus guard on every tick and set by every action.
	acted atomic.Bool
	now   func() time.Time
}

// New builds a session context with a fresh session ID.
func New(id *identity.Identity, rng *random.Engine, sink schemas.LogSink, logger *zap.Logger) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	sessionID := uuid.NewString()
	return &Context{
		ID:       sessionID,
		Identity: id,
		Random:   rng,
		Logger:   logger.With(zap.String("session_id", sessionID)),
		Fatal:    &FatalFlag{},
		Sink:     sink,
		now:      time.Now,
	}
}

// TrackTab records the tab the session owns so recovery can close it.
func (c *Context) TrackTab(tab schemas.TabCloser) {
	c.tabMu.Lock()
	defer c.tabMu.Unlock()
	c.tab = tab
}

// Tab returns the tracked tab, or nil.
func (c *Context) Tab() schemas.TabCloser {
	c.tabMu.Lock()
	defer c.tabMu.Unlock()
	return c.tab
}

// MarkAction records that an action happened since the last focus check.
func (c *Context) MarkAction() {
	c.acted.Store(true)
}

// ConsumeAction reports whether an action happened and resets the marker.
func (c *Context) ConsumeAction() bool {
	return c.acted.Swap(false)
}

// Log writes one structured entry to the sink. It also mirrors the entry to
// the debug logger. A nil sink is not an error.
func (c *Context) Log(ctx context.Context, key, value string, screenshot []byte) error {
	c.Logger.Debug("Session log.", zap.String("key", key), zap.String("value", value), zap.Bool("screenshot", len(screenshot) > 0))
	if c.Sink == nil {
		return nil
	}
	entry := schemas.LogEntry{
		ID:         uuid.NewString(),
		SessionID:  c.ID,
		Key:        key,
		Value:      value,
		Screenshot: screenshot,
		CreatedAt:  c.now().UTC(),
	}
	return c.Sink.NewLog(ctx, entry)
}

// LogBestEffort is Log with sink failures demoted to a warning.
func (c *Context) LogBestEffort(ctx context.Context, key, value string, screenshot []byte) {
	if err := c.Log(ctx, key, value, screenshot); err != nil {
		c.Logger.Warn("Failed to write log entry.", zap.String("key", key), zap.Error(err))
	}
}
