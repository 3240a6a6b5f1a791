// Package metrics — счётчики Prometheus сервера портала.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg             *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	messagesSent    prometheus.Counter
	messagesRead    prometheus.Counter
	cacheLookups    *prometheus.CounterVec
}

// New создаёт отдельный реестр: метрики процесса и Go runtime плюс метрики портала.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "portal",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "messages_sent_total",
			Help:      "Messages stored.",
		}),
		messagesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "messages_marked_read_total",
			Help:      "Successful mark-read calls.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "recipient_cache_lookups_total",
			Help:      "Recipient cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.requestDuration, m.messagesSent, m.messagesRead, m.cacheLookups,
	)
	return m
}

// Handler — /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ObserveRequest учитывает завершённый запрос. route — шаблон chi, не сырой путь.
func (m *Metrics) ObserveRequest(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) MessageSent() {
	if m != nil {
		m.messagesSent.Inc()
	}
}

func (m *Metrics) MessageRead() {
	if m != nil {
		m.messagesRead.Inc()
	}
}

func (m *Metrics) CacheLookup(result string) {
	if m != nil {
		m.cacheLookups.WithLabelValues(result).Inc()
	}
}
