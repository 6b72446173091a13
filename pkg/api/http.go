package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"chatsync/pkg/api/handlers"
	"chatsync/pkg/config"
)

// NewRouter builds the versioned API router with rate limiting and request
// logging applied to every route.
func NewRouter(d handlers.Deps, sec config.SecurityConfig) http.Handler {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()

	handlers.RegisterConversations(v1, d)
	handlers.RegisterMessages(v1, d)
	handlers.RegisterStream(v1, d)
	handlers.RegisterCacheStats(v1, d)

	limited := RateLimit(sec)(LogRequests(r))
	return limited
}
