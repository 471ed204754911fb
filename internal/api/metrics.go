package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so several servers can live in one process.
type Metrics struct {
	reg         *prometheus.Registry
	submissions *prometheus.CounterVec
	moderation  *prometheus.CounterVec
	lookups     *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "request_service",
			Name:      "submissions_total",
			Help:      "Song submissions by outcome.",
		}, []string{"outcome"}),
		moderation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "request_service",
			Name:      "moderator_actions_total",
			Help:      "Moderator actions by kind.",
		}, []string{"action"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "request_service",
			Name:      "catalog_lookups_total",
			Help:      "Catalog calls by operation and result.",
		}, []string{"op", "result"}),
	}
	m.reg.MustRegister(
		m.submissions,
		m.moderation,
		m.lookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) Submission(outcome string) {
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Moderation(action string) {
	m.moderation.WithLabelValues(action).Inc()
}

func (m *Metrics) Lookup(op, result string) {
	m.lookups.WithLabelValues(op, result).Inc()
}
