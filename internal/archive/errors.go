package archive

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("document not found")
	ErrConflict     = errors.New("document state conflict")
	ErrForbidden    = errors.New("forbidden")

	// ErrInvalidTransition marks a lifecycle move the state machine never
	// allows, as opposed to ErrConflict for a move that lost a race.
	ErrInvalidTransition = errors.New("invalid status transition")
)
