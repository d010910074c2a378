package trips

import "errors"

var (
	// ErrNotFound is returned when a trip does not exist or is outside the caller's organization.
	ErrNotFound = errors.New("trip not found")
	// ErrValidation wraps every rejected input.
	ErrValidation = errors.New("validation failed")
	// ErrConcurrentUpdate is returned when an update keeps losing to other writers.
	ErrConcurrentUpdate = errors.New("trip was modified concurrently, retry the update")
	// ErrForbidden is returned when the caller has no access to the requested organization.
	ErrForbidden = errors.New("access to organization denied")
)
