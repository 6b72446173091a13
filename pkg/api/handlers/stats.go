package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"chatsync/pkg/utils"
)

// RegisterCacheStats registers the cache/store statistics endpoint.
func RegisterCacheStats(r *mux.Router, d Deps) {
	h := &statsHandlers{d: d}
	r.HandleFunc("/cache/stats", h.stats).Methods(http.MethodGet)
}

type statsHandlers struct {
	d Deps
}

func (h *statsHandlers) stats(w http.ResponseWriter, r *http.Request) {
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{
		"cache": h.d.Cache.Stats(),
		"db":    h.d.Store.GetDBMetrics(),
	})
}
