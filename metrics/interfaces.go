// Package metrics records neongrid operation activity as Prometheus series.
//
// The server exposes a ScrapeRegistry on /metrics and, when
// monitoring.push_url is set, also feeds a PushRegistry that is flushed to a
// remote-write endpoint on monitoring.push_interval. The CLI only pushes,
// flushing once when its run ends. OperationMetrics is built against either
// registry, so the runner can record the same start, item and summary events
// into both.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry is where OperationMetrics gets its series from. ScrapeRegistry
// hands out live prometheus collectors; PushRegistry hands out buffered
// values that are only sent on Flush.
type Registry interface {
	NewGauge(opts prometheus.GaugeOpts) (Gauge, error)
	NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error)
	NewCounter(opts prometheus.CounterOpts) (Counter, error)
	NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error)
}

// Gauge holds the latest value, e.g. whether an operation is running.
type Gauge interface {
	Set(float64)
}

// Counter only grows. Add panics on a negative delta.
type Counter interface {
	Inc()
	Add(float64)
}

// GaugeVec selects a Gauge by label values, e.g. kind.
type GaugeVec interface {
	With(prometheus.Labels) Gauge
}

// CounterVec selects a Counter by label values, e.g. kind and outcome.
type CounterVec interface {
	With(prometheus.Labels) Counter
}
