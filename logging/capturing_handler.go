package logging

import (
	"context"
	"log/slog"
	"strings"
)

// CapturingHandler wraps an slog.Handler and copies every record into a
// LogCollector under a run ID before passing it through.
type CapturingHandler struct {
	underlying slog.Handler
	collector  *LogCollector
	runID      string
	attrs      []slog.Attr // keys already qualified by their group
	groups     []string
}

// NewCapturingHandler creates a CapturingHandler that stores records for runID.
func NewCapturingHandler(underlying slog.Handler, collector *LogCollector, runID string) *CapturingHandler {
	return &CapturingHandler{
		underlying: underlying,
		collector:  collector,
		runID:      runID,
	}
}

// RunLoggerFactory returns a function creating per-run loggers on top of
// base. Records are captured at every level; base still filters its own output.
func RunLoggerFactory(base *slog.Logger, collector *LogCollector) func(runID string) *slog.Logger {
	return func(runID string) *slog.Logger {
		h := NewCapturingHandler(base.Handler(), collector, runID)
		return slog.New(h).With("run_id", runID)
	}
}

// Enabled returns true for every level so run logs keep debug records.
func (h *CapturingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

// Handle captures the record and passes it to the underlying handler if
// that handler accepts the level.
func (h *CapturingHandler) Handle(ctx context.Context, r slog.Record) error {
	entry := LogEntry{
		Time:       r.Time,
		Level:      r.Level.String(),
		Message:    r.Message,
		Attributes: make(map[string]any, r.NumAttrs()+len(h.attrs)),
	}
	for _, attr := range h.attrs {
		entry.Attributes[attr.Key] = resolveValue(attr.Value)
	}
	prefix := h.prefix()
	r.Attrs(func(a slog.Attr) bool {
		entry.Attributes[prefix+a.Key] = resolveValue(a.Value)
		return true
	})
	h.collector.AddLog(h.runID, entry)

	if !h.underlying.Enabled(ctx, r.Level) {
		return nil
	}
	return h.underlying.Handle(ctx, r)
}

// WithAttrs returns a CapturingHandler that also records attrs.
func (h *CapturingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	prefix := h.prefix()
	newAttrs := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	newAttrs = append(newAttrs, h.attrs...)
	for _, a := range attrs {
		newAttrs = append(newAttrs, slog.Attr{Key: prefix + a.Key, Value: a.Value})
	}

	return &CapturingHandler{
		underlying: h.underlying.WithAttrs(attrs),
		collector:  h.collector,
		runID:      h.runID,
		attrs:      newAttrs,
		groups:     h.groups,
	}
}

// WithGroup returns a CapturingHandler that qualifies later keys with name.
func (h *CapturingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	newGroups := make([]string, len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups[len(h.groups)] = name

	return &CapturingHandler{
		underlying: h.underlying.WithGroup(name),
		collector:  h.collector,
		runID:      h.runID,
		attrs:      h.attrs,
		groups:     newGroups,
	}
}

func (h *CapturingHandler) prefix() string {
	if len(h.groups) == 0 {
		return ""
	}
	return strings.Join(h.groups, ".") + "."
}

// resolveValue converts a slog.Value to a JSON-serializable value.
func resolveValue(v slog.Value) any {
	v = v.Resolve()

	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.Any()
	case slog.KindGroup:
		attrs := v.Group()
		group := make(map[string]any, len(attrs))
		for _, attr := range attrs {
			group[attr.Key] = resolveValue(attr.Value)
		}
		return group
	default:
		return v.Any()
	}
}
