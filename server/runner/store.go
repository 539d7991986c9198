package runner

// StateStore keeps the history of finished runs.
type StateStore interface {
	// History returns all runs, most recent first.
	History() []RunRecord
	// Get returns the run with the given ID.
	Get(id string) (RunRecord, bool)
	// Save records a finished run.
	Save(RunRecord) error
}
