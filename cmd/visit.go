// cmd/visit.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/das-group/HOSIT/internal/config"
	"github.com/das-group/HOSIT/internal/humanoid"
	"github.com/das-group/HOSIT/internal/observability"
)

// visitOptions selects the steps of the browse scenario.
type visitOptions struct {
	Target         string
	SearchSelector string
	Query          string
	Scroll         bool
	Press          bool
}

func newVisitCmd(factory SessionFactory) *cobra.Command {
	visitCmd := &cobra.Command{
		Use:   "visit <url>",
		Short: "Opens a page and browses it like a person",
		Long: `Opens the page in a camouflaged tab, waits, optionally searches for the
session seed and scrolls to the bottom with human timing. Any interaction
failure ends the session through the recovery protocol.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			logger := observability.GetLogger()
			applyVisitFlagOverrides(cmd, cfg)

			opts := visitOptions{Target: args[0]}
			opts.SearchSelector, _ = cmd.Flags().GetString("search")
			opts.Scroll, _ = cmd.Flags().GetBool("scroll")
			opts.Press, _ = cmd.Flags().GetBool("page-keys")
			explicitSeed, _ := cmd.Flags().GetString("seed")

			return runVisit(cmd.Context(), logger, cfg, opts, SessionOptions{Seed: explicitSeed}, factory)
		},
	}

	visitCmd.Flags().String("seed", "", "Use this seed instead of a stored or generated one.")
	visitCmd.Flags().Bool("reuse-seed", false, "Replay the last stored seed. (Overrides config/env)")
	visitCmd.Flags().Bool("headless", false, "Run the launched browser headless. (Overrides config/env)")
	visitCmd.Flags().String("remote-url", "", "DevTools endpoint of a running browser. (Overrides config/env)")
	visitCmd.Flags().String("search", "", "Selector of a search field to type the seed into.")
	visitCmd.Flags().Bool("scroll", true, "Scroll to the bottom of the page.")
	visitCmd.Flags().Bool("page-keys", false, "Scroll with PageDown instead of arrow key bursts.")
	return visitCmd
}

// applyVisitFlagOverrides applies only the flags that were set explicitly.
func applyVisitFlagOverrides(cmd *cobra.Command, cfg config.Interface) {
	flags := cmd.Flags()
	if flags.Changed("headless") {
		v, _ := flags.GetBool("headless")
		cfg.SetBrowserHeadless(v)
	}
	if flags.Changed("remote-url") {
		v, _ := flags.GetString("remote-url")
		cfg.SetBrowserRemoteURL(v)
	}
	if flags.Changed("reuse-seed") {
		v, _ := flags.GetBool("reuse-seed")
		cfg.SetSeedReuse(v)
	}
}

// normalizeTarget defaults a scheme-less target to https.
func normalizeTarget(target string) string {
	target = strings.TrimSpace(target)
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		return "https://" + target
	}
	return target
}

// runVisit assembles a session and runs the browse scenario next to the focus guard.
func runVisit(ctx context.Context, logger *zap.Logger, cfg *config.Config, opts visitOptions, sopts SessionOptions, factory SessionFactory) error {
	opts.Target = normalizeTarget(opts.Target)

	components, err := factory.Create(ctx, cfg, sopts, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize session components: %w", err)
	}
	defer func() {
		if err := components.Shutdown(ctx); err != nil {
			logger.Warn("Session shutdown reported errors.", zap.Error(err))
		}
	}()
	if opts.Query == "" {
		opts.Query = components.Seed
	}

	logger.Info("Starting visit.",
		zap.String("session_id", components.SessionID),
		zap.String("target", opts.Target),
		zap.String("seed", components.Seed),
	)

	g, gctx := errgroup.WithContext(ctx)
	scenarioCtx, stopGuard := context.WithCancel(gctx)
	defer stopGuard()

	if components.Guard != nil {
		g.Go(func() error {
			return components.Guard.Run(scenarioCtx)
		})
	}
	g.Go(func() error {
		defer stopGuard()
		return browse(scenarioCtx, components.Navigator, components.Driver, opts)
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("Visit aborted.", zap.String("session_id", components.SessionID))
		}
		return err
	}

	logger.Info("Visit completed.", zap.String("session_id", components.SessionID))
	return nil
}

// browse is the default scenario: load, linger, search, scroll, document.
func browse(ctx context.Context, nav Navigator, d Driver, opts visitOptions) error {
	if err := nav.Navigate(ctx, opts.Target); err != nil {
		return err
	}
	if err := d.RandomWait(ctx, nil); err != nil {
		return err
	}

	if opts.SearchSelector != "" && opts.Query != "" {
		if err := d.WaitForSelector(ctx, opts.SearchSelector, false); err != nil {
			return err
		}
		if err := d.Click(ctx, opts.SearchSelector, humanoid.ClickOptions{}); err != nil {
			return err
		}
		if err := d.Type(ctx, opts.SearchSelector, opts.Query, humanoid.TypeOptions{}); err != nil {
			return err
		}
		if err := d.TypeEnter(ctx); err != nil {
			return err
		}
		if err := d.RandomWait(ctx, nil); err != nil {
			return err
		}
	}

	if opts.Scroll {
		if _, err := d.ScrollToBottom(ctx, true, opts.Press); err != nil {
			return err
		}
	}
	return d.LogScreenshot(ctx, "visit: "+opts.Target, false)
}
