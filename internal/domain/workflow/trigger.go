package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	// TriggerAdvance fires when a non-final step is approved and the
	// current-step pointer moves forward.
	TriggerAdvance Trigger = "ADVANCE"

	// TriggerApproveFinal fires when the step at totalSteps is approved.
	TriggerApproveFinal Trigger = "APPROVE_FINAL"

	// TriggerReject fires on any rejection; rejection is always terminal
	// regardless of step position.
	TriggerReject Trigger = "REJECT"

	// TriggerCancel fires when the requester withdraws the workflow. The
	// machine only validates that cancellation is permitted; the engine
	// deletes the workflow rather than storing a cancelled state.
	TriggerCancel Trigger = "CANCEL"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
