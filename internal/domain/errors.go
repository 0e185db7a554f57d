package domain

import "errors"

var (
	// ErrNotFoundOrAlreadyProcessed is returned by approve/reject when no
	// PENDING order with the given id exists.
	ErrNotFoundOrAlreadyProcessed = errors.New("order not found or already processed")

	// ErrInvalidTransition is returned when a status change is not allowed
	// by the entity's state machine.
	ErrInvalidTransition = errors.New("invalid status transition")
)
