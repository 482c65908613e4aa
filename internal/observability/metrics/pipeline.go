// Package metrics provides custom Prometheus metrics for the scan pipeline and its feeds.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Scan outcome and path labels.
const (
	OutcomeStored   = "stored"
	OutcomeNotFound = "not_found"
	OutcomeAborted  = "aborted"
	OutcomeFailed   = "failed"
	OutcomeBusy     = "busy"
	OutcomeNoText   = "no_text"

	PathBarcode = "barcode"
	PathLabel   = "label"
	PathAvoid   = "avoid"
)

// PipelineMetrics contains the Prometheus metrics of lookups and scans.
type PipelineMetrics struct {
	LookupsTotal   *prometheus.CounterVec
	ScansTotal     *prometheus.CounterVec
	ScanDuration   *prometheus.HistogramVec
	ProductsStored *prometheus.CounterVec
	ScansInFlight  prometheus.Gauge
}

// NewPipelineMetrics creates the pipeline metrics and registers them with registry.
func NewPipelineMetrics(registry prometheus.Registerer) (*PipelineMetrics, error) {
	m := &PipelineMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.LookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "foodscan_lookups_total",
		Help: "Total number of barcode lookups by provider and result status.",
	}, []string{"provider", "status"})

	m.ScansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "foodscan_scans_total",
		Help: "Total number of scans by path and outcome.",
	}, []string{"path", "outcome"})

	m.ScanDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "foodscan_scan_duration_seconds",
		Help:    "Duration of complete scan pipelines in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"path"})

	m.ProductsStored = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "foodscan_products_stored_total",
		Help: "Total number of stored products by verdict.",
	}, []string{"verdict"})

	m.ScansInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "foodscan_scans_in_flight",
		Help: "Number of scans currently running.",
	})
}

// RecordLookup counts one adapter outcome. status is the lookup status name.
func (m *PipelineMetrics) RecordLookup(provider, status string) {
	m.LookupsTotal.WithLabelValues(provider, status).Inc()
}

// RecordScan counts a finished scan and observes its duration.
func (m *PipelineMetrics) RecordScan(path, outcome string, d time.Duration) {
	m.ScansTotal.WithLabelValues(path, outcome).Inc()
	m.ScanDuration.WithLabelValues(path).Observe(d.Seconds())
}

// RecordProduct counts a stored product by verdict.
func (m *PipelineMetrics) RecordProduct(verdict string) {
	m.ProductsStored.WithLabelValues(verdict).Inc()
}

// ScanStarted increments the in-flight gauge and returns its decrement.
func (m *PipelineMetrics) ScanStarted() func() {
	m.ScansInFlight.Inc()
	return m.ScansInFlight.Dec
}

// Collect implements the prometheus.Collector interface.
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.LookupsTotal.Collect(ch)
	m.ScansTotal.Collect(ch)
	m.ScanDuration.Collect(ch)
	m.ProductsStored.Collect(ch)
	ch <- m.ScansInFlight
}

// Describe implements the prometheus.Collector interface.
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.LookupsTotal.Describe(ch)
	m.ScansTotal.Describe(ch)
	m.ScanDuration.Describe(ch)
	m.ProductsStored.Describe(ch)
	ch <- m.ScansInFlight.Desc()
}
