package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatsync_cache_hits_total",
		Help: "Total cache hits",
	})

	missesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatsync_cache_misses_total",
		Help: "Total cache misses",
	})

	setsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatsync_cache_sets_total",
		Help: "Total cache inserts",
	})

	evictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatsync_cache_evictions_total",
		Help: "Entries removed by score-based eviction",
	})

	expirationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatsync_cache_expirations_total",
		Help: "Entries removed after exceeding TTL",
	})

	sizeGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatsync_cache_entries",
		Help: "Current number of cached entries",
	})
)
