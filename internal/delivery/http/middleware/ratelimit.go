package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Pesokrava/storefront/internal/delivery/http/response"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
)

// visitorTTL is how long an idle client keeps its token bucket
const visitorTTL = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitors holds one token bucket per client IP. Idle entries are swept
// lazily on access, at most once per ttl.
type visitors struct {
	mu        sync.Mutex
	entries   map[string]*visitor
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newVisitors(rps float64, burst int, ttl time.Duration) *visitors {
	return &visitors{
		entries:   make(map[string]*visitor),
		limit:     rate.Limit(rps),
		burst:     burst,
		ttl:       ttl,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (v *visitors) get(ip string) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	if now.Sub(v.lastSweep) > v.ttl {
		for key, e := range v.entries {
			if now.Sub(e.lastSeen) > v.ttl {
				delete(v.entries, key)
			}
		}
		v.lastSweep = now
	}

	e, ok := v.entries[ip]
	if !ok {
		e = &visitor{limiter: rate.NewLimiter(v.limit, v.burst)}
		v.entries[ip] = e
	}
	e.lastSeen = now
	return e.limiter
}

func (v *visitors) len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.entries)
}

// RateLimit enforces a per client IP token bucket and answers 429 once it is empty.
// It expects chi's RealIP middleware to have normalized RemoteAddr.
func RateLimit(rps float64, burst int, log *logger.Logger) func(http.Handler) http.Handler {
	store := newVisitors(rps, burst, visitorTTL)
	return rateLimit(store, log)
}

func rateLimit(store *visitors, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !store.get(ip).Allow() {
				log.WithFields(map[string]interface{}{
					"ip":   ip,
					"path": r.URL.Path,
				}).Warn("Rate limit exceeded")

				w.Header().Set("Retry-After", "1")
				response.Error(w, http.StatusTooManyRequests, "Too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
