package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"chatsync/pkg/config"
	"chatsync/pkg/logger"
	"chatsync/pkg/utils"
)

var rateLimitHits = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chatsync_rate_limit_hits_total",
	Help: "Requests rejected by the rate limiter",
})

var httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatsync_http_requests_total",
	Help: "Total HTTP requests",
}, []string{"method"})

type limiterPool struct {
	mu  sync.Mutex
	m   map[string]*rate.Limiter
	cfg config.SecurityConfig
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m == nil {
		p.m = make(map[string]*rate.Limiter)
	}
	if l, ok := p.m[key]; ok {
		return l
	}
	rps := p.cfg.RateLimit.RPS
	if rps <= 0 {
		rps = 50
	}
	burst := p.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 100
	}
	l := rate.NewLimiter(rate.Limit(rps), burst)
	p.m[key] = l
	return l
}

func (p *limiterPool) Allow(key string) bool {
	return p.get(key).Allow()
}

// RateLimit returns middleware applying a per-client token bucket keyed by
// remote IP.
func RateLimit(sec config.SecurityConfig) func(http.Handler) http.Handler {
	pool := &limiterPool{cfg: sec}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			if !pool.Allow(host) {
				rateLimitHits.Inc()
				utils.JSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LogRequests logs a concise summary of each request after it completes.
func LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequests.WithLabelValues(r.Method).Inc()
		next.ServeHTTP(w, r)
		logger.Debug("http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
