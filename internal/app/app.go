package app

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"

	"chatsync/internal/retention"
	"chatsync/pkg/banner"
	"chatsync/pkg/cache"
	"chatsync/pkg/config"
	"chatsync/pkg/feed"
	"chatsync/pkg/logger"
	"chatsync/pkg/msgcache"
	"chatsync/pkg/store"
	"chatsync/pkg/syncer"
	"chatsync/pkg/validation"
)

// App encapsulates the daemon components and lifecycle. It is the single
// composition root: the bounded cache and the paged message store are
// constructed exactly once here and handed by reference to everything that
// needs them.
type App struct {
	eff     config.EffectiveConfigResult
	version string

	hub      *feed.Hub
	store    *store.Store
	msgCache *msgcache.Store
	rawCache *cache.Cache[any]
}

// New initializes resources that do not require a running context (DB,
// caches, validation rules). Call Run to start the HTTP server, janitor and
// retention scheduler, and block until shutdown.
func New(eff config.EffectiveConfigResult, version string) (*App, error) {
	_ = godotenv.Load(".env")

	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	cfg := eff.Config
	validation.SetRules(validation.Rules{
		MaxContentLen: 64 * 1024,
		RequireSender: true,
	})

	hub := feed.NewHub(cfg.Sync.FeedBuffer)
	st, err := store.Open(eff.DBPath, hub, cfg.Sync.SnapshotWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	raw := cache.New[any](cache.Options{
		Capacity: cfg.Cache.MaxEntries,
		TTL:      cfg.Cache.TTL.Std(),
	})
	mc := msgcache.New(raw, msgcache.Options{
		PageSize:        cfg.Cache.PageSize,
		FreshnessWindow: cfg.Cache.FreshnessWindow.Std(),
		MaxContentBytes: int(cfg.Cache.MaxContentBytes),
	})

	return &App{eff: eff, version: version, hub: hub, store: st, msgCache: mc, rawCache: raw}, nil
}

// Run starts the background workers and the HTTP server, and blocks until
// ctx is cancelled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	a.rawCache.StartJanitor(ctx, a.eff.Config.Cache.JanitorInterval.Std())

	stopRetention, err := retention.Start(ctx, a.store, a.eff.Config.Retention)
	if err != nil {
		return err
	}
	defer stopRetention()

	banner.Print(a.eff, a.version)

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		a.shutdown()
		return err
	}
}

func (a *App) shutdown() {
	a.hub.Close()
	if err := a.store.Close(); err != nil {
		logger.Error("store_close_failed", "error", err)
	}
}

// OpenConversation builds and opens a sync controller for one conversation,
// wired to the app's store, shared cache and live feed with the configured
// page size and viewport threshold. Callers own the returned controller and
// must Close it.
func (a *App) OpenConversation(ctx context.Context, chatID, userID string) (*syncer.Controller, error) {
	c := syncer.New(chatID, userID, a.store, a.msgCache, syncer.Options{
		PageSize:        a.eff.Config.Cache.PageSize,
		BottomThreshold: a.eff.Config.Sync.BottomThreshold,
	})
	if err := c.Open(ctx, a.hub); err != nil {
		return nil, err
	}
	return c, nil
}

// Store exposes the document store (used by tests and admin tooling).
func (a *App) Store() *store.Store { return a.store }

// MsgCache exposes the paged message cache.
func (a *App) MsgCache() *msgcache.Store { return a.msgCache }

// Hub exposes the live feed hub.
func (a *App) Hub() *feed.Hub { return a.hub }
