// internal/humanoid/focus.go
package humanoid

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/das-group/HOSIT/internal/session"
)

// Foregrounder activates a tab.
type Foregrounder interface {
	BringToFront(ctx context.Context) error
}

// FocusGuard re-focuses the session tab whenever a full interval passes
// without any action. Sites that open extra tabs otherwise leave a headful
// session acting on a background tab.
type FocusGuard struct {
	sc       *session.Context
	tab      Foregrounder
	interval time.Duration
	logger   *zap.Logger
}

// NewFocusGuard creates a guard for the tab. A non-positive interval defaults to one minute.
func NewFocusGuard(sc *session.Context, tab Foregrounder, interval time.Duration) *FocusGuard {
	if interval <= 0 {
		interval = time.Minute
	}
	return &FocusGuard{
		sc:       sc,
		tab:      tab,
		interval: interval,
		logger:   sc.Logger.Named("focus_guard"),
	}
}

// Run blocks until ctx is cancelled or the session turns fatal.
func (g *FocusGuard) Run(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	g.logger.Debug("Focus guard started.", zap.Duration("interval", g.interval))
	for {
		select {
		case <-ctx.Done():
			g.logger.Debug("Focus guard stopped.")
			return nil
		case <-ticker.C:
			if g.sc.Fatal.IsSet() {
				return nil
			}
			if g.sc.ConsumeAction() {
				continue
			}
			if err := g.tab.BringToFront(ctx); err != nil {
				g.logger.Warn("Failed to re-focus session tab.", zap.Error(err))
				continue
			}
			g.logger.Debug("controlStatus: bringToFront")
		}
	}
}
