package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadParsesDurationsAndSizes(t *testing.T) {
	p := writeConfig(t, `
server:
  address: "127.0.0.1"
  port: 9090
  db_path: "/tmp/chatsync-db"
cache:
  max_entries: 2000
  ttl: 45m
  page_size: 50
  freshness_window: 120000
  max_content_bytes: 8KB
retention:
  enabled: true
  period: 720h
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Server.Address != "127.0.0.1" {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if cfg.Cache.TTL.Std() != 45*time.Minute {
		t.Fatalf("ttl = %v; want 45m", cfg.Cache.TTL.Std())
	}
	// bare integers are milliseconds
	if cfg.Cache.FreshnessWindow.Std() != 2*time.Minute {
		t.Fatalf("freshness_window = %v; want 2m", cfg.Cache.FreshnessWindow.Std())
	}
	if cfg.Cache.MaxContentBytes != 8000 {
		t.Fatalf("max_content_bytes = %d; want 8000", cfg.Cache.MaxContentBytes)
	}
	if !cfg.Retention.Enabled || cfg.Retention.Period.Std() != 720*time.Hour {
		t.Fatalf("retention = %+v", cfg.Retention)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	p := writeConfig(t, "cache:\n  ttl: soon\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("invalid duration must fail to parse")
	}
}

func TestMergeKeepsDefaultsForUnsetFields(t *testing.T) {
	dst := Defaults()
	src := &Config{}
	src.Server.Port = 9999
	src.Cache.PageSize = 10
	merge(dst, src)

	if dst.Server.Port != 9999 || dst.Cache.PageSize != 10 {
		t.Fatalf("overlay not applied: %+v", dst)
	}
	if dst.Cache.MaxEntries != 1000 || dst.Cache.TTL.Std() != 30*time.Minute {
		t.Fatalf("unset fields must keep defaults: %+v", dst.Cache)
	}
	if dst.Security.RateLimit.RPS != 50 {
		t.Fatalf("rate limit default lost: %+v", dst.Security)
	}
}

func TestAddrDefaultsPort(t *testing.T) {
	c := &Config{}
	if got := c.Addr(); got != ":8080" {
		t.Fatalf("addr = %q; want :8080", got)
	}
	c.Server.Address = "10.0.0.1"
	c.Server.Port = 7000
	if got := c.Addr(); got != "10.0.0.1:7000" {
		t.Fatalf("addr = %q", got)
	}
}

func TestParseConfigEnvs(t *testing.T) {
	t.Setenv("CHATSYNC_ADDR", "0.0.0.0:9191")
	t.Setenv("CHATSYNC_CACHE_TTL", "10m")
	t.Setenv("CHATSYNC_PAGE_SIZE", "15")
	t.Setenv("CHATSYNC_LOG_LEVEL", "DEBUG")

	cfg, used := ParseConfigEnvs()
	if !used {
		t.Fatalf("env vars present but not detected")
	}
	if cfg.Server.Address != "0.0.0.0" || cfg.Server.Port != 9191 {
		t.Fatalf("addr env not split: %+v", cfg.Server)
	}
	if cfg.Cache.TTL.Std() != 10*time.Minute || cfg.Cache.PageSize != 15 {
		t.Fatalf("cache env not applied: %+v", cfg.Cache)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("log level must be lowercased; got %q", cfg.Logging.Level)
	}
}

func TestLoadEffectivePrecedence(t *testing.T) {
	p := writeConfig(t, "server:\n  port: 9090\ncache:\n  page_size: 40\n")
	t.Setenv("CHATSYNC_PAGE_SIZE", "15")

	eff, err := LoadEffective(Flags{
		Addr:   ":7777",
		DB:     "/tmp/flag-db",
		Config: p,
		Set:    map[string]bool{"config": true, "addr": true, "db": true},
	})
	if err != nil {
		t.Fatalf("load effective: %v", err)
	}
	if eff.Addr != ":7777" {
		t.Fatalf("flag addr must win; got %q", eff.Addr)
	}
	if eff.DBPath != "/tmp/flag-db" {
		t.Fatalf("flag db must win; got %q", eff.DBPath)
	}
	// env overrides file
	if eff.Config.Cache.PageSize != 15 {
		t.Fatalf("page_size = %d; want env override 15", eff.Config.Cache.PageSize)
	}
	// file overrides defaults where env is silent
	if eff.Config.Server.Port != 9090 {
		t.Fatalf("port = %d; want file value 9090", eff.Config.Server.Port)
	}
	if eff.Source != "flags" {
		t.Fatalf("source = %q; want flags", eff.Source)
	}
}

func TestLoadEffectiveMissingExplicitConfig(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	_, err := LoadEffective(Flags{Config: missing, Set: map[string]bool{"config": true}})
	if err == nil {
		t.Fatalf("explicitly named missing config must fail")
	}
}

func TestLoadEffectiveMissingDefaultConfig(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.yaml")
	eff, err := LoadEffective(Flags{Config: missing, Set: map[string]bool{}})
	if err != nil {
		t.Fatalf("missing default config must fall back to defaults: %v", err)
	}
	if eff.Config.Cache.MaxEntries != 1000 {
		t.Fatalf("defaults not applied: %+v", eff.Config.Cache)
	}
}
