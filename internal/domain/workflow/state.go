package workflow

// State represents the overall status of an approval workflow
type State string

const (
	StatePending     State = "pending"
	StateUnderReview State = "under-review"
	StateApproved    State = "approved"
	StateRejected    State = "rejected"
)

var validStates = map[State]bool{
	StatePending:     true,
	StateUnderReview: true,
	StateApproved:    true,
	StateRejected:    true,
}

var terminalStates = map[State]bool{
	StateApproved: true,
	StateRejected: true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsActive returns true while the workflow still accepts decisions
func (s State) IsActive() bool {
	return s == StatePending || s == StateUnderReview
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}
