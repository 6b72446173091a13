package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"chatsync/pkg/config"
	"chatsync/pkg/logger"
	"chatsync/pkg/store"
)

// Start launches the scheduled purge runner if retention is enabled.
// Returns a cancel func.
func Start(ctx context.Context, st *store.Store, cfg config.RetentionConfig) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}
	if cfg.Period <= 0 {
		return nil, fmt.Errorf("retention enabled without a period")
	}
	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = "0 2 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", cfg.Cron)
		return nil, fmt.Errorf("invalid retention cron expression: %s", cfg.Cron)
	}

	logger.Info("retention_enabled", "cron", cronExpr, "period", cfg.Period.Std().String())
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, st, cfg, cronExpr)
	return cancel, nil
}

// runScheduler computes the next cron tick with gronx and sleeps until it,
// triggering one purge per tick.
func runScheduler(ctx context.Context, st *store.Store, cfg config.RetentionConfig, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			RunOnce(st, cfg)
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		}
	}
}

// RunOnce performs a single purge pass. Exposed for admin triggers and
// tests.
func RunOnce(st *store.Store, cfg config.RetentionConfig) {
	cutoff := time.Now().UTC().Add(-cfg.Period.Std()).UnixNano()
	purged, err := st.PurgeOlderThan(cutoff, cfg.BatchSize, cfg.DryRun)
	if err != nil {
		logger.Error("retention_run_error", "error", err)
		return
	}
	logger.Info("retention_run_complete", "purged", purged, "dry_run", cfg.DryRun)
}
