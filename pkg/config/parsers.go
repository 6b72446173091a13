package config

import (
	"flag"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Flags holds parsed command-line flag values and which were set.
type Flags struct {
	Addr   string
	DB     string
	Config string
	Set    map[string]bool
}

// EffectiveConfigResult is the merged configuration the daemon runs with.
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	DBPath string
	Source string // "flags", "config", "env" or "defaults"
}

// ParseConfigFlags parses command-line flags.
func ParseConfigFlags() Flags {
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	dbPtr := flag.String("db", "./.database", "Pebble DB path")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	flag.Parse()
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return Flags{Addr: *addrPtr, DB: *dbPtr, Config: *cfgPtr, Set: setFlags}
}

// ParseConfigEnvs reads CHATSYNC_* environment variables into a fresh
// Config and reports whether any were present.
func ParseConfigEnvs() (*Config, bool) {
	envCfg := &Config{}
	envUsed := false

	if v := os.Getenv("CHATSYNC_ADDR"); v != "" {
		envUsed = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			envCfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				envCfg.Server.Port = pi
			}
		} else {
			envCfg.Server.Address = v
		}
	}
	if v := os.Getenv("CHATSYNC_DB_PATH"); v != "" {
		envUsed = true
		envCfg.Server.DBPath = v
	}
	if v := os.Getenv("CHATSYNC_LOG_LEVEL"); v != "" {
		envUsed = true
		envCfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("CHATSYNC_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			envUsed = true
			envCfg.Cache.TTL = Duration(d)
		}
	}
	if v := os.Getenv("CHATSYNC_CACHE_MAX_ENTRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			envUsed = true
			envCfg.Cache.MaxEntries = n
		}
	}
	if v := os.Getenv("CHATSYNC_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			envUsed = true
			envCfg.Cache.PageSize = n
		}
	}
	if v := os.Getenv("CHATSYNC_FRESHNESS_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			envUsed = true
			envCfg.Cache.FreshnessWindow = Duration(d)
		}
	}
	return envCfg, envUsed
}

// ResolveConfigPath picks the config file path: an explicit flag wins,
// then CHATSYNC_CONFIG, then the flag default.
func ResolveConfigPath(flagVal string, flagSet bool) string {
	if flagSet {
		return flagVal
	}
	if v := os.Getenv("CHATSYNC_CONFIG"); v != "" {
		return v
	}
	return flagVal
}

// LoadEffective merges defaults, the optional config file, environment
// overrides and explicit flags (strongest last) into the effective config.
func LoadEffective(flags Flags) (EffectiveConfigResult, error) {
	cfg := Defaults()
	source := "defaults"

	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	if fileCfg, err := Load(cfgPath); err == nil {
		merge(cfg, fileCfg)
		source = "config"
	} else if !os.IsNotExist(err) {
		return EffectiveConfigResult{}, err
	} else if flags.Set["config"] {
		// an explicitly named config file must exist
		return EffectiveConfigResult{}, err
	}

	if envCfg, used := ParseConfigEnvs(); used {
		merge(cfg, envCfg)
		source = "env"
	}

	addr := cfg.Addr()
	if flags.Set["addr"] {
		addr = flags.Addr
		source = "flags"
	}
	dbPath := cfg.Server.DBPath
	if flags.Set["db"] {
		dbPath = flags.DB
		source = "flags"
	}
	cfg.Server.DBPath = dbPath

	return EffectiveConfigResult{Config: cfg, Addr: addr, DBPath: dbPath, Source: source}, nil
}
