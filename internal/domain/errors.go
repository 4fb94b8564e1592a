package domain

import "errors"

// Sentinel errors shared across the store, engine, and API layers.
// Callers match with errors.Is; the HTTP layer maps them to status codes.
var (
	// ErrRoundNotFound means no round document exists for the request.
	ErrRoundNotFound = errors.New("round not found")

	// ErrDuplicateRound means a concurrent writer already created the
	// round number being inserted.
	ErrDuplicateRound = errors.New("round already exists")

	// ErrMessageNotFound means the requested chat message is absent.
	ErrMessageNotFound = errors.New("message not found")

	// ErrConcurrentModification means a conditional write lost the race
	// beyond the retry budget. The caller should refresh and retry.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrAccessDenied means the caller's role could not be established
	// for the negotiation.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidState means the operation is not legal in the clause's
	// current negotiation state.
	ErrInvalidState = errors.New("invalid negotiation state")

	// ErrValidation means the input is malformed and the call should not
	// be retried as-is.
	ErrValidation = errors.New("validation failed")
)
