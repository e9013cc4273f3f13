package httpapi

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter *rate.Limiter
	last    time.Time
}

// limiterSet hands out one token bucket per client address.
type limiterSet struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time
}

func newLimiterSet(perSecond float64, burst int, idle time.Duration) *limiterSet {
	return &limiterSet{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idle:    idle,
		now:     time.Now,
	}
}

func (s *limiterSet) allow(client string) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.clients[client]
	if !ok {
		s.prune(now)
		entry = &clientLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.clients[client] = entry
	}
	entry.last = now

	return entry.limiter.AllowN(now, 1)
}

// prune drops limiters idle for longer than s.idle. Callers hold s.mu.
func (s *limiterSet) prune(now time.Time) {
	for key, entry := range s.clients {
		if now.Sub(entry.last) > s.idle {
			delete(s.clients, key)
		}
	}
}

func (s *limiterSet) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.allow(remoteIP(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")

			return
		}
		next.ServeHTTP(w, r)
	})
}

func remoteIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")

		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
