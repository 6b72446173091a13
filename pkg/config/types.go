package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML scalars like "5m",
// "90s" or bare millisecond integers.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	s := strings.TrimSpace(value.Value)
	if s == "" {
		*d = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(n) * time.Millisecond)
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// SizeBytes unmarshals human-readable sizes ("4KB", "1MiB") or raw byte
// counts.
type SizeBytes int64

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *SizeBytes) UnmarshalYAML(value *yaml.Node) error {
	v := strings.TrimSpace(value.Value)
	if v == "" {
		*s = 0
		return nil
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		*s = SizeBytes(n)
		return nil
	}
	n, err := humanize.ParseBytes(v)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", v, err)
	}
	*s = SizeBytes(n)
	return nil
}

// Config is the main configuration struct.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Cache     CacheConfig     `yaml:"cache"`
	Sync      SyncConfig      `yaml:"sync"`
	Security  SecurityConfig  `yaml:"security"`
	Retention RetentionConfig `yaml:"retention"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds listen and storage settings.
type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	DBPath  string `yaml:"db_path"`
}

// CacheConfig tunes the bounded message cache.
type CacheConfig struct {
	// MaxEntries is the soft capacity across all namespaces.
	MaxEntries int `yaml:"max_entries"`
	// TTL is the entry lifetime before a read treats it as expired.
	TTL Duration `yaml:"ttl"`
	// PageSize bounds messages per cached page.
	PageSize int `yaml:"page_size"`
	// FreshnessWindow is the grace period for recently accessed stale pages.
	FreshnessWindow Duration `yaml:"freshness_window"`
	// MaxContentBytes caps cached message content per message.
	MaxContentBytes SizeBytes `yaml:"max_content_bytes"`
	// JanitorInterval is how often expired entries are swept proactively.
	JanitorInterval Duration `yaml:"janitor_interval"`
}

// SyncConfig tunes live fanout and the per-thread controllers.
type SyncConfig struct {
	// SnapshotWindow is the size of the live snapshot published on mutation.
	SnapshotWindow int `yaml:"snapshot_window"`
	// FeedBuffer is the per-subscriber snapshot channel depth.
	FeedBuffer int `yaml:"feed_buffer"`
	// BottomThreshold is the auto-scroll distance for thread viewports.
	BottomThreshold float64 `yaml:"bottom_threshold"`
}

// SecurityConfig holds rate limiting settings for the HTTP surface.
type SecurityConfig struct {
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// RetentionConfig holds configuration for the automatic purge runner.
type RetentionConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Cron      string   `yaml:"cron"`
	Period    Duration `yaml:"period"`
	BatchSize int      `yaml:"batch_size"`
	DryRun    bool     `yaml:"dry_run"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	host := c.Server.Address
	port := c.Server.Port
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", host, port)
}
