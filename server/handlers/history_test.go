package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/neongrid/engine"
	"github.com/nomis52/neongrid/logging"
	"github.com/nomis52/neongrid/server/runner"
)

type mockHistory struct {
	records []runner.RunRecord
	logs    map[string][]logging.LogEntry
}

func (m *mockHistory) History() []runner.RunRecord { return m.records }

func (m *mockHistory) Logs(id string) ([]logging.LogEntry, bool) {
	logs, ok := m.logs[id]
	return logs, ok
}

func (m *mockHistory) Activity() []runner.ActivityEntry {
	return []runner.ActivityEntry{{Level: engine.LevelInfo, Message: "Follow bot started with 2 items"}}
}

func historyRouter(p *mockHistory) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/api/history", NewHistoryHandler(p))
	r.Method(http.MethodGet, "/api/history/{id}/logs", NewHistoryLogsHandler(p))
	r.Method(http.MethodGet, "/api/activity", NewActivityHandler(p))
	return r
}

func TestHistoryHandler(t *testing.T) {
	p := &mockHistory{records: []runner.RunRecord{{
		Summary:     engine.Summary{RunID: "r1", Kind: engine.KindLike, Processed: 2, Succeeded: 2},
		Description: "like bot completed: 2 liked, 0 failed",
	}}}

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	w := httptest.NewRecorder()
	historyRouter(p).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0]["run_id"])
	assert.Equal(t, "like bot completed: 2 liked, 0 failed", got[0]["description"])
	assert.NotContains(t, got[0], "Logs")
}

func TestHistoryLogsHandler(t *testing.T) {
	p := &mockHistory{logs: map[string][]logging.LogEntry{
		"r1": {{Time: time.Unix(0, 0).UTC(), Level: "INFO", Message: "operation started"}},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/history/r1/logs", nil)
	w := httptest.NewRecorder()
	historyRouter(p).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var logs []logging.LogEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "operation started", logs[0].Message)

	req = httptest.NewRequest(http.MethodGet, "/api/history/nope/logs", nil)
	w = httptest.NewRecorder()
	historyRouter(p).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "nope")
}

func TestActivityHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/activity", nil)
	w := httptest.NewRecorder()
	historyRouter(&mockHistory{}).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Follow bot started with 2 items")
}
