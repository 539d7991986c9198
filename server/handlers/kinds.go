package handlers

import (
	"net/http"

	"github.com/nomis52/neongrid/server/runner"
)

// KindsResponse is the JSON response for /api/kinds.
type KindsResponse struct {
	Kinds []runner.KindInfo `json:"kinds"`
}

// KindsHandler lists every operation kind with its effective config.
type KindsHandler struct {
	provider KindsProvider
}

// NewKindsHandler creates a new KindsHandler.
func NewKindsHandler(provider KindsProvider) *KindsHandler {
	return &KindsHandler{provider: provider}
}

// ServeHTTP implements http.Handler.
func (h *KindsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, KindsResponse{Kinds: h.provider.Kinds()})
}
