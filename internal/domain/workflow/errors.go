package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when the current state permits no
	// transitions at all (terminal or unconfigured)
	ErrInvalidState = errors.New("invalid state")
)
