package engine

import "time"

// Outcome is the simulated result of processing one item.
type Outcome int

const (
	// OutcomeFailure means the item failed (invalid, taken, not followed, ...).
	OutcomeFailure Outcome = iota
	// OutcomeSuccess means the item succeeded (valid, available, followed, ...).
	OutcomeSuccess
)

// String returns "success" or "failure".
func (o Outcome) String() string {
	if o == OutcomeSuccess {
		return "success"
	}
	return "failure"
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// ItemResult reports the outcome of one processed item.
type ItemResult struct {
	RunID   string        `json:"run_id"`
	Kind    Kind          `json:"kind"`
	Index   int           `json:"index"`
	Item    string        `json:"item"`
	Label   string        `json:"label"`
	Outcome Outcome       `json:"outcome"`
	Delay   time.Duration `json:"delay,omitempty"`
}

// Progress reports how many items have been processed out of the run's limit.
type Progress struct {
	RunID     string `json:"run_id"`
	Kind      Kind   `json:"kind"`
	Processed int    `json:"processed"`
	Limit     int    `json:"limit"`
}

// Summary is emitted exactly once when a run terminates.
type Summary struct {
	RunID     string    `json:"run_id"`
	Kind      Kind      `json:"kind"`
	Processed int       `json:"processed"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Limit     int       `json:"limit"`
	Cancelled bool      `json:"cancelled"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// Duration returns how long the run took.
func (s Summary) Duration() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}

// Sink receives the presentation events of runs.
//
// For a single run, events arrive in this order: for each item an ItemResult
// followed by a Progress, then exactly one Summary. Implementations must not
// block for long; they are called from the step loop.
type Sink interface {
	ItemResult(ItemResult)
	Progress(Progress)
	Summary(Summary)
}

// MultiSink fans events out to every sink in order.
type MultiSink []Sink

// ItemResult implements Sink.
func (m MultiSink) ItemResult(r ItemResult) {
	for _, s := range m {
		s.ItemResult(r)
	}
}

// Progress implements Sink.
func (m MultiSink) Progress(p Progress) {
	for _, s := range m {
		s.Progress(p)
	}
}

// Summary implements Sink.
func (m MultiSink) Summary(s Summary) {
	for _, sink := range m {
		sink.Summary(s)
	}
}

// SinkFuncs adapts optional functions to the Sink interface.
// Nil fields are skipped.
type SinkFuncs struct {
	OnItemResult func(ItemResult)
	OnProgress   func(Progress)
	OnSummary    func(Summary)
}

// ItemResult implements Sink.
func (f SinkFuncs) ItemResult(r ItemResult) {
	if f.OnItemResult != nil {
		f.OnItemResult(r)
	}
}

// Progress implements Sink.
func (f SinkFuncs) Progress(p Progress) {
	if f.OnProgress != nil {
		f.OnProgress(p)
	}
}

// Summary implements Sink.
func (f SinkFuncs) Summary(s Summary) {
	if f.OnSummary != nil {
		f.OnSummary(s)
	}
}

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a human-readable message for the user.
type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Notifier displays notifications. Callers surface start errors through it.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Notification)

// Notify implements Notifier.
func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

// Notifiers fans notifications out to every notifier in order.
type Notifiers []Notifier

// Notify implements Notifier.
func (ns Notifiers) Notify(n Notification) {
	for _, notifier := range ns {
		notifier.Notify(n)
	}
}
