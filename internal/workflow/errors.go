package workflow

import "errors"

var (
	// ErrRequestInFlight rejects a CheckAvailability or Submit call while
	// another one is still pending. Callers retry once it resolves.
	ErrRequestInFlight = errors.New("another request is still in flight")

	// ErrAvailabilityNotConfirmed blocks submission without a fresh
	// positive availability verdict for the current draft.
	ErrAvailabilityNotConfirmed = errors.New("availability has not been confirmed for the current draft")

	// ErrAlreadySubmitted rejects operations on a workflow that reached
	// its terminal state.
	ErrAlreadySubmitted = errors.New("booking request has already been submitted")

	// ErrNotEditing is returned when hydration is requested on a workflow
	// that was not constructed with an existing booking id.
	ErrNotEditing = errors.New("workflow is not editing an existing booking")
)
