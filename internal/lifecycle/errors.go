package lifecycle

import (
	"errors"
)

// Error kinds surfaced by lifecycle operations. The HTTP layer translates
// them to status codes; this package never formats user-facing messages.
var (
	// ErrNotFound - letter, user or department path could not be resolved.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized - the actor is not in the candidate set required for
	// the attempted transition. Recoverable; the actor must pick another
	// action, retrying the same one cannot succeed.
	ErrUnauthorized = errors.New("actor not authorized for this transition")

	// ErrInvalidState - the transition is not legal from the current status,
	// e.g. approving an already-approved letter. Recoverable, no retry.
	ErrInvalidState = errors.New("transition not legal from current status")

	// ErrValidation - a required field (comment, rejection reason,
	// recipient) is missing or malformed.
	ErrValidation = errors.New("invalid input")

	// ErrConflict - a concurrent transition won the race. Retryable after
	// re-reading the letter and re-evaluating guards.
	ErrConflict = errors.New("concurrent transition conflict")
)
