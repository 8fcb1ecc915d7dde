// Package promx exposes the service's Prometheus collectors: refresh job
// outcomes, fetch latency and per-table cache freshness.
package promx

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adlens/adlens/internal/models"
)

type Metrics struct {
	reg *prometheus.Registry

	refreshJobs   *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	freshEntries  *prometheus.GaugeVec
	staleEntries  *prometheus.GaugeVec
	tableHealth   *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		refreshJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adlens_refresh_jobs_total",
			Help: "Refresh job outcomes per platform.",
		}, []string{"platform", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "adlens_fetch_duration_seconds",
			Help:    "Upstream fetch duration per platform.",
			Buckets: prometheus.DefBuckets,
		}, []string{"platform"}),
		freshEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "adlens_cache_fresh_entries",
			Help: "Fresh entries per cache table.",
		}, []string{"table"}),
		staleEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "adlens_cache_stale_entries",
			Help: "Stale entries per cache table.",
		}, []string{"table"}),
		tableHealth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "adlens_cache_table_health",
			Help: "Table health: 0 healthy, 1 warning, 2 critical.",
		}, []string{"table"}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		m.refreshJobs,
		m.fetchDuration,
		m.freshEntries,
		m.staleEntries,
		m.tableHealth,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordJob(platform models.Platform, outcome models.JobOutcome) {
	m.refreshJobs.WithLabelValues(string(platform), string(outcome)).Inc()
}

func (m *Metrics) RecordFetchDuration(platform models.Platform, d time.Duration) {
	m.fetchDuration.WithLabelValues(string(platform)).Observe(d.Seconds())
}

// ObserveTable pushes a table summary into the freshness gauges.
func (m *Metrics) ObserveTable(s models.CacheTableSummary) {
	table := string(s.Table)
	m.freshEntries.WithLabelValues(table).Set(float64(s.FreshEntries))
	m.staleEntries.WithLabelValues(table).Set(float64(s.StaleEntries))
	var level float64
	switch s.HealthStatus {
	case models.HealthWarning:
		level = 1
	case models.HealthCritical:
		level = 2
	}
	m.tableHealth.WithLabelValues(table).Set(level)
}
