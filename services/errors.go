package services

import "errors"

// Typed failure modes of the decision core. All local and recoverable — handlers
// map these to HTTP status codes without inspecting message text.
var (
	// ErrUnknownModule: referenced module identifier is not in the catalog
	ErrUnknownModule = errors.New("module not found in catalog")

	// ErrAlreadyCompleted: starting a module the user already finished
	ErrAlreadyCompleted = errors.New("module already completed")

	// ErrModuleNotStarted: completing an activity without a live progress record
	ErrModuleNotStarted = errors.New("module not started")

	// ErrUnknownActivity: activity id does not belong to the module's activity list
	ErrUnknownActivity = errors.New("activity does not belong to module")

	// ErrInvalidObservation: malformed severity or missing required fields
	ErrInvalidObservation = errors.New("invalid observation")
)
