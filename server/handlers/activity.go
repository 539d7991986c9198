package handlers

import "net/http"

// ActivityHandler returns the activity feed, newest first.
type ActivityHandler struct {
	provider ActivityProvider
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(provider ActivityProvider) *ActivityHandler {
	return &ActivityHandler{provider: provider}
}

// ServeHTTP implements http.Handler.
func (h *ActivityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.provider.Activity())
}

// SchedulesHandler lists the configured schedules with their next run times.
type SchedulesHandler struct {
	provider ScheduleProvider
}

// NewSchedulesHandler creates a new SchedulesHandler.
func NewSchedulesHandler(provider ScheduleProvider) *SchedulesHandler {
	return &SchedulesHandler{provider: provider}
}

// ServeHTTP implements http.Handler.
func (h *SchedulesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.provider.Schedules())
}
