package middleware

import (
	"net/http"
	"time"

	"github.com/academyportal/internal/logger"
	"github.com/academyportal/internal/metrics"
	"github.com/go-chi/chi/v5"
)

// RequestLog логирует каждый HTTP-запрос (method, path, код, время) и пишет метрики по шаблону маршрута.
func RequestLog(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrap := wrapWriter(w)
			next.ServeHTTP(wrap, r)
			d := time.Since(start)
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if p := rc.RoutePattern(); p != "" {
					route = p
				}
			}
			m.ObserveRequest(r.Method, route, wrap.status, d)
			logger.Debugf("http %s %s %d %v", r.Method, r.URL.Path, wrap.status, d)
		})
	}
}
