package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/nomis52/neongrid/engine"
	"github.com/nomis52/neongrid/input"
	"github.com/nomis52/neongrid/server/runner"
)

const (
	// maxRequestItems bounds the number of items in one start request.
	maxRequestItems = 10000
	maxRequestBody  = 2 << 20
)

var validate = validator.New()

// StartRequest defines the request body for POST /api/operations.
// Items and Text are combined, Items first.
type StartRequest struct {
	Kind      string   `json:"kind" validate:"required"`
	Items     []string `json:"items,omitempty" validate:"max=10000"`
	Text      string   `json:"text,omitempty" validate:"max=1048576"`
	MaxItems  *int     `json:"max_items,omitempty" validate:"omitempty,gte=0"`
	Templates []string `json:"templates,omitempty" validate:"dive,required"`
}

// StopResponse is the JSON response for POST /api/operations/stop.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StartHandler handles requests to start an operation.
type StartHandler struct {
	operator Operator
}

// NewStartHandler creates a new StartHandler.
func NewStartHandler(operator Operator) *StartHandler {
	return &StartHandler{operator: operator}
}

// ServeHTTP implements http.Handler.
func (h *StartHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req StartRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationError(err))
		return
	}

	kind, err := engine.ParseKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	items := input.Lines(strings.Join(req.Items, "\n"))
	items = append(items, input.Lines(req.Text)...)
	if len(items) > maxRequestItems {
		writeError(w, http.StatusBadRequest, fmt.Errorf("too many items: %d (max %d)", len(items), maxRequestItems))
		return
	}

	snap, err := h.operator.Start(runner.Request{
		Kind:      kind,
		Items:     items,
		MaxItems:  req.MaxItems,
		Templates: req.Templates,
	})
	if err != nil {
		if errors.Is(err, engine.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusAccepted, snap)
}

// StopHandler handles requests to stop all operations.
type StopHandler struct {
	operator Operator
}

// NewStopHandler creates a new StopHandler.
func NewStopHandler(operator Operator) *StopHandler {
	return &StopHandler{operator: operator}
}

// ServeHTTP implements http.Handler.
func (h *StopHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StopResponse{Stopped: h.operator.Stop()})
}

// validationError flattens validator errors into one message.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid request: %s", strings.Join(msgs, ", "))
}
