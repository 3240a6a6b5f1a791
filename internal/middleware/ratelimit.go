package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdleTTL — сколько неиспользуемый лимитер живёт в пуле.
const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// limiterPool — token bucket на ключ (IP или пользователь).
type limiterPool struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	rps     rate.Limit
	burst   int
	sweepAt time.Time
}

func newLimiterPool(rps float64, burst int) *limiterPool {
	return &limiterPool{entries: make(map[string]*limiterEntry), rps: rate.Limit(rps), burst: burst}
}

func (p *limiterPool) allow(key string) bool {
	p.mu.Lock()
	now := time.Now()
	e, ok := p.entries[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(p.rps, p.burst)}
		p.entries[key] = e
	}
	e.lastSeen = now
	if now.After(p.sweepAt) {
		for k, v := range p.entries {
			if now.Sub(v.lastSeen) > limiterIdleTTL {
				delete(p.entries, k)
			}
		}
		p.sweepAt = now.Add(limiterIdleTTL)
	}
	lim := e.lim
	p.mu.Unlock()
	return lim.Allow()
}

// RateLimit ограничивает запросы по IP и, если пользователь уже известен, по user_id. 429 при превышении.
// Подключать после BearerAuth, чтобы лимит по пользователю работал.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	byIP := newLimiterPool(rps, burst)
	byUser := newLimiterPool(rps, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !byIP.allow(clientIP(r)) {
				tooManyRequests(w)
				return
			}
			if uid := GetUserID(r.Context()); uid != 0 {
				if !byUser.allow("u:" + strconv.FormatInt(uid, 10)) {
					tooManyRequests(w)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if x := r.Header.Get("X-Real-Ip"); x != "" {
		return x
	}
	if x := r.Header.Get("X-Forwarded-For"); x != "" {
		if idx := strings.Index(x, ","); idx > 0 {
			return strings.TrimSpace(x[:idx])
		}
		return strings.TrimSpace(x)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func tooManyRequests(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Retry-After", "1")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"too many requests"}` + "\n"))
}
