package latex

import "errors"

var (
	// ErrMatchTimeout reports that a pattern exceeded its per-match time budget.
	// Callers treat it as "skip this document", not as a fatal error.
	ErrMatchTimeout = errors.New("latex: pattern match timed out")

	ErrInvalidLevel       = errors.New("latex: marker level must be positive")
	ErrEmptyMarkerName    = errors.New("latex: marker name cannot be empty")
	ErrMarkerFileTooLarge = errors.New("latex: marker spec file exceeds maximum size")
)
