package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults returns the built-in configuration.
func Defaults() *Config {
	c := &Config{}
	c.Server.Address = ""
	c.Server.Port = 8080
	c.Server.DBPath = "./.database"
	c.Cache.MaxEntries = 1000
	c.Cache.TTL = Duration(30 * time.Minute)
	c.Cache.PageSize = 25
	c.Cache.FreshnessWindow = Duration(5 * time.Minute)
	c.Cache.MaxContentBytes = 4096
	c.Cache.JanitorInterval = Duration(time.Minute)
	c.Sync.SnapshotWindow = 25
	c.Sync.FeedBuffer = 8
	c.Sync.BottomThreshold = 100
	c.Security.RateLimit.RPS = 50
	c.Security.RateLimit.Burst = 100
	c.Retention.BatchSize = 500
	return c
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// merge overlays non-zero fields of src onto dst.
func merge(dst, src *Config) {
	if src.Server.Address != "" {
		dst.Server.Address = src.Server.Address
	}
	if src.Server.Port != 0 {
		dst.Server.Port = src.Server.Port
	}
	if src.Server.DBPath != "" {
		dst.Server.DBPath = src.Server.DBPath
	}
	if src.Cache.MaxEntries != 0 {
		dst.Cache.MaxEntries = src.Cache.MaxEntries
	}
	if src.Cache.TTL != 0 {
		dst.Cache.TTL = src.Cache.TTL
	}
	if src.Cache.PageSize != 0 {
		dst.Cache.PageSize = src.Cache.PageSize
	}
	if src.Cache.FreshnessWindow != 0 {
		dst.Cache.FreshnessWindow = src.Cache.FreshnessWindow
	}
	if src.Cache.MaxContentBytes != 0 {
		dst.Cache.MaxContentBytes = src.Cache.MaxContentBytes
	}
	if src.Cache.JanitorInterval != 0 {
		dst.Cache.JanitorInterval = src.Cache.JanitorInterval
	}
	if src.Sync.SnapshotWindow != 0 {
		dst.Sync.SnapshotWindow = src.Sync.SnapshotWindow
	}
	if src.Sync.FeedBuffer != 0 {
		dst.Sync.FeedBuffer = src.Sync.FeedBuffer
	}
	if src.Sync.BottomThreshold != 0 {
		dst.Sync.BottomThreshold = src.Sync.BottomThreshold
	}
	if src.Security.RateLimit.RPS != 0 {
		dst.Security.RateLimit.RPS = src.Security.RateLimit.RPS
	}
	if src.Security.RateLimit.Burst != 0 {
		dst.Security.RateLimit.Burst = src.Security.RateLimit.Burst
	}
	if src.Retention.Enabled {
		dst.Retention.Enabled = true
	}
	if src.Retention.Cron != "" {
		dst.Retention.Cron = src.Retention.Cron
	}
	if src.Retention.Period != 0 {
		dst.Retention.Period = src.Retention.Period
	}
	if src.Retention.BatchSize != 0 {
		dst.Retention.BatchSize = src.Retention.BatchSize
	}
	if src.Retention.DryRun {
		dst.Retention.DryRun = true
	}
	if src.Logging.Level != "" {
		dst.Logging.Level = src.Logging.Level
	}
}
