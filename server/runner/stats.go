package runner

import (
	"sync"

	"github.com/nomis52/neongrid/engine"
)

// stats holds cumulative per-kind counters for the life of the process.
type stats struct {
	mu     sync.Mutex
	byKind map[engine.Kind]*KindStats
}

func newStats() *stats {
	return &stats{byKind: make(map[engine.Kind]*KindStats)}
}

func (s *stats) get(kind engine.Kind) *KindStats {
	ks, ok := s.byKind[kind]
	if !ok {
		ks = &KindStats{}
		s.byKind[kind] = ks
	}
	return ks
}

func (s *stats) item(r engine.ItemResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ks := s.get(r.Kind)
	ks.Processed++
	if r.Outcome == engine.OutcomeSuccess {
		ks.Succeeded++
	} else {
		ks.Failed++
	}
}

func (s *stats) run(sum engine.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ks := s.get(sum.Kind)
	ks.Runs++
	if sum.Cancelled {
		ks.Cancelled++
	}
}

// snapshot returns the counters keyed by kind name. Every kind is present.
func (s *stats) snapshot() map[string]KindStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[string]KindStats, len(engine.Kinds()))
	for _, kind := range engine.Kinds() {
		if ks, ok := s.byKind[kind]; ok {
			result[kind.String()] = *ks
		} else {
			result[kind.String()] = KindStats{}
		}
	}
	return result
}
