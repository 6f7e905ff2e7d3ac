package router

import (
	"net/http"
	"sync"
	"time"

	"github.com/shandysiswandi/passgate/internal/pkg/config"
	"golang.org/x/time/rate"
)

const throttleIdleTTL = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipThrottle keeps one token bucket per client IP. Buckets idle for longer
// than throttleIdleTTL are dropped on the next sweep.
type ipThrottle struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newIPThrottle(rps float64, burst int) *ipThrottle {
	return &ipThrottle{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    max(burst, 1),
		now:      time.Now,
	}
}

func (t *ipThrottle) allow(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if now.Sub(t.lastSweep) > throttleIdleTTL {
		for k, v := range t.visitors {
			if now.Sub(v.lastSeen) > throttleIdleTTL {
				delete(t.visitors, k)
			}
		}
		t.lastSweep = now
	}

	v, ok := t.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.visitors[ip] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

// middlewareThrottle reads app.server.throttle.rps and .burst. A non-positive
// rps disables throttling.
func middlewareThrottle(cfg config.Config) Middleware {
	var rps float64
	var burst int
	if cfg != nil {
		rps = cfg.GetFloat64("app.server.throttle.rps")
		burst = cfg.GetInt("app.server.throttle.burst")
	}

	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	// shared by every route the middleware wraps
	t := newIPThrottle(rps, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !t.allow(clientIP(r)) {
				w.Header().Set("Retry-After", "1")
				writeJSON(w, errorResponse{Message: "Too many requests"}, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
