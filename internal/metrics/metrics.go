// Package metrics exposes scan counters and timings to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

const namespace = "oddsarb"

// Registry holds every oddsarb collector on its own prometheus registry so
// several instances can coexist in tests.
type Registry struct {
	reg *prometheus.Registry

	EventsScanned  *prometheus.CounterVec
	EventsFailed   *prometheus.CounterVec
	Findings       *prometheus.CounterVec
	StrategyFaults *prometheus.CounterVec
	ScanDuration   *prometheus.HistogramVec
	QuotaRemaining *prometheus.GaugeVec
	LastScan       *prometheus.GaugeVec
}

// NewRegistry creates and registers the collectors, plus the Go runtime and
// process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		EventsScanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_scanned_total",
			Help:      "Events summarised, by sport.",
		}, []string{"sport"}),
		EventsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_failed_total",
			Help:      "Events that could not be summarised, by sport.",
		}, []string{"sport"}),
		Findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Arbitrage findings, by sport and kind.",
		}, []string{"sport", "kind"}),
		StrategyFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strategy_faults_total",
			Help:      "Strategy failures isolated during a scan, by strategy.",
		}, []string{"strategy"}),
		ScanDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Wall time of one sport scan.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"sport", "result"}),
		QuotaRemaining: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provider_quota_remaining",
			Help:      "Requests remaining on the odds provider quota.",
		}, []string{"provider"}),
		LastScan: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_scan_timestamp_seconds",
			Help:      "Unix time of the last completed scan, by sport.",
		}, []string{"sport"}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.EventsScanned,
		r.EventsFailed,
		r.Findings,
		r.StrategyFaults,
		r.ScanDuration,
		r.QuotaRemaining,
		r.LastScan,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// ObserveScan records one completed sport scan.
func (r *Registry) ObserveScan(sport string, started time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.ScanDuration.WithLabelValues(sport, result).Observe(time.Since(started).Seconds())
	if err == nil {
		r.LastScan.WithLabelValues(sport).SetToCurrentTime()
	}
}

// RecordEvents adds the scanned and failed event counts for a sport.
func (r *Registry) RecordEvents(sport string, scanned, failed int) {
	r.EventsScanned.WithLabelValues(sport).Add(float64(scanned))
	r.EventsFailed.WithLabelValues(sport).Add(float64(failed))
}

// RecordFindings counts findings by kind.
func (r *Registry) RecordFindings(sport string, findings []domain.Finding) {
	for _, f := range findings {
		r.Findings.WithLabelValues(sport, string(f.Kind)).Inc()
	}
}

// RecordFaults counts strategy faults.
func (r *Registry) RecordFaults(faults []domain.StrategyFault) {
	for _, f := range faults {
		r.StrategyFaults.WithLabelValues(f.Strategy).Inc()
	}
}

// SetQuota publishes the provider's remaining request count. A negative value
// means the provider did not report one and is ignored.
func (r *Registry) SetQuota(provider string, remaining int) {
	if remaining < 0 {
		return
	}
	r.QuotaRemaining.WithLabelValues(provider).Set(float64(remaining))
}
