package handlers

import (
	"net/http"
	"time"

	"github.com/nomis52/neongrid/server/runner"
	"github.com/nomis52/neongrid/server/types"
)

// NextRunResponse describes the next scheduled operation.
type NextRunResponse struct {
	Scheduled bool       `json:"scheduled"`
	NextRun   *time.Time `json:"next_run,omitempty"`
}

// APIStatusResponse is the consolidated response for /api/status.
type APIStatusResponse struct {
	Server  types.ServerProperties `json:"server"`
	Run     runner.Status          `json:"run"`
	NextRun NextRunResponse        `json:"next_run"`
}

// APIStatusHandler handles requests for the consolidated status endpoint.
type APIStatusHandler struct {
	provider StatusProvider
}

// NewAPIStatusHandler creates a new APIStatusHandler.
func NewAPIStatusHandler(provider StatusProvider) *APIStatusHandler {
	return &APIStatusHandler{
		provider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *APIStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	nextRun := h.provider.NextRun()

	writeJSON(w, http.StatusOK, APIStatusResponse{
		Server: h.provider.Properties(),
		Run:    h.provider.Status(),
		NextRun: NextRunResponse{
			Scheduled: nextRun != nil,
			NextRun:   nextRun,
		},
	})
}
