package engine

import "errors"

var (
	// ErrAlreadyRunning is returned by Start when another run is active.
	ErrAlreadyRunning = errors.New("another operation is already running")

	// ErrEmptyInput is returned by Start when the job has no input items.
	ErrEmptyInput = errors.New("operation input is empty")

	// ErrUnknownKind is returned for kinds outside the defined set.
	ErrUnknownKind = errors.New("unknown operation kind")

	// ErrInvalidConfig is returned by Start when the job config fails validation.
	ErrInvalidConfig = errors.New("invalid operation config")
)
