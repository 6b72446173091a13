package handlers

import (
	"chatsync/pkg/feed"
	"chatsync/pkg/msgcache"
	"chatsync/pkg/store"
)

// Deps bundles the collaborators the HTTP handlers operate on. All are
// constructed once by the composition root and shared.
type Deps struct {
	Store *store.Store
	Cache *msgcache.Store
	Hub   *feed.Hub
	// PageSize is the default window for message listings.
	PageSize int
}
