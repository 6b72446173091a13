package app

import (
	"fmt"

	"chatsync/pkg/config"
)

// validateConfig fails fast on configurations that would misbehave at
// runtime rather than at startup.
func validateConfig(eff config.EffectiveConfigResult) error {
	if eff.Config == nil {
		return fmt.Errorf("nil config")
	}
	cfg := eff.Config
	if eff.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if cfg.Cache.PageSize < 1 {
		return fmt.Errorf("cache.page_size must be >= 1")
	}
	if cfg.Cache.MaxEntries < cfg.Cache.PageSize {
		return fmt.Errorf("cache.max_entries (%d) must be >= cache.page_size (%d)",
			cfg.Cache.MaxEntries, cfg.Cache.PageSize)
	}
	if cfg.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if cfg.Cache.FreshnessWindow < 0 {
		return fmt.Errorf("cache.freshness_window must not be negative")
	}
	if cfg.Retention.Enabled && cfg.Retention.Period <= 0 {
		return fmt.Errorf("retention.period is required when retention is enabled")
	}
	return nil
}
