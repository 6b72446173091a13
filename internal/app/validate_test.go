package app

import (
	"testing"
	"time"

	"chatsync/pkg/config"
)

func validEff() config.EffectiveConfigResult {
	return config.EffectiveConfigResult{
		Config: config.Defaults(),
		Addr:   ":8080",
		DBPath: "./.database",
		Source: "defaults",
	}
}

func TestValidateConfigDefaults(t *testing.T) {
	if err := validateConfig(validEff()); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidateConfigRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.EffectiveConfigResult)
	}{
		{"nil config", func(e *config.EffectiveConfigResult) { e.Config = nil }},
		{"empty db path", func(e *config.EffectiveConfigResult) { e.DBPath = "" }},
		{"zero page size", func(e *config.EffectiveConfigResult) { e.Config.Cache.PageSize = 0 }},
		{"capacity under page size", func(e *config.EffectiveConfigResult) {
			e.Config.Cache.MaxEntries = 5
			e.Config.Cache.PageSize = 10
		}},
		{"zero ttl", func(e *config.EffectiveConfigResult) { e.Config.Cache.TTL = 0 }},
		{"negative freshness window", func(e *config.EffectiveConfigResult) {
			e.Config.Cache.FreshnessWindow = config.Duration(-time.Second)
		}},
		{"retention without period", func(e *config.EffectiveConfigResult) {
			e.Config.Retention.Enabled = true
			e.Config.Retention.Period = 0
		}},
	}
	for _, tc := range cases {
		eff := validEff()
		tc.mutate(&eff)
		if err := validateConfig(eff); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}
