package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/neongrid/engine"
)

// OperationMetrics records engine events. It implements engine.Sink.
type OperationMetrics struct {
	items       CounterVec
	runs        CounterVec
	rejected    CounterVec
	running     Gauge
	progress    GaugeVec
	lastRunSecs GaugeVec
}

var _ engine.Sink = (*OperationMetrics)(nil)

// NewOperationMetrics creates and registers the operation metrics in reg.
func NewOperationMetrics(reg Registry) (*OperationMetrics, error) {
	m := &OperationMetrics{}
	var err error

	if m.items, err = reg.NewCounterVec(prometheus.CounterOpts{
		Name: "operation_items_total",
		Help: "Items processed by operations, by kind and outcome.",
	}, []string{"kind", "outcome"}); err != nil {
		return nil, err
	}
	if m.runs, err = reg.NewCounterVec(prometheus.CounterOpts{
		Name: "operation_runs_total",
		Help: "Finished operation runs, by kind and result (completed or cancelled).",
	}, []string{"kind", "result"}); err != nil {
		return nil, err
	}
	if m.rejected, err = reg.NewCounterVec(prometheus.CounterOpts{
		Name: "operation_start_rejected_total",
		Help: "Start requests refused, by reason.",
	}, []string{"reason"}); err != nil {
		return nil, err
	}
	if m.running, err = reg.NewGauge(prometheus.GaugeOpts{
		Name: "operation_running",
		Help: "1 while an operation run is active.",
	}); err != nil {
		return nil, err
	}
	if m.progress, err = reg.NewGaugeVec(prometheus.GaugeOpts{
		Name: "operation_progress_ratio",
		Help: "Fraction of the current or last run's limit that has been processed.",
	}, []string{"kind"}); err != nil {
		return nil, err
	}
	if m.lastRunSecs, err = reg.NewGaugeVec(prometheus.GaugeOpts{
		Name: "operation_last_run_duration_seconds",
		Help: "Wall time of the last finished run, by kind.",
	}, []string{"kind"}); err != nil {
		return nil, err
	}

	return m, nil
}

// ItemResult implements engine.Sink.
func (m *OperationMetrics) ItemResult(r engine.ItemResult) {
	m.running.Set(1)
	m.items.With(prometheus.Labels{"kind": r.Kind.String(), "outcome": r.Outcome.String()}).Inc()
}

// Progress implements engine.Sink.
func (m *OperationMetrics) Progress(p engine.Progress) {
	if p.Limit == 0 {
		return
	}
	m.progress.With(prometheus.Labels{"kind": p.Kind.String()}).Set(float64(p.Processed) / float64(p.Limit))
}

// Summary implements engine.Sink.
func (m *OperationMetrics) Summary(s engine.Summary) {
	result := "completed"
	if s.Cancelled {
		result = "cancelled"
	}
	kind := prometheus.Labels{"kind": s.Kind.String()}

	m.running.Set(0)
	m.runs.With(prometheus.Labels{"kind": s.Kind.String(), "result": result}).Inc()
	m.lastRunSecs.With(kind).Set(s.Duration().Seconds())
}

// Started marks a run as active.
func (m *OperationMetrics) Started(kind engine.Kind) {
	m.running.Set(1)
	m.progress.With(prometheus.Labels{"kind": kind.String()}).Set(0)
}

// Rejected counts a refused start request.
func (m *OperationMetrics) Rejected(err error) {
	m.rejected.With(prometheus.Labels{"reason": RejectReason(err)}).Inc()
}

// RejectReason maps a start error to a metric label.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, engine.ErrAlreadyRunning):
		return "already_running"
	case errors.Is(err, engine.ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, engine.ErrUnknownKind):
		return "unknown_kind"
	case errors.Is(err, engine.ErrInvalidConfig):
		return "invalid_config"
	default:
		return "other"
	}
}

