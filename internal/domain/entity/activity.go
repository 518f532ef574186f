package entity

import "time"

// Action identifies the kind of event recorded in the activity log
type Action string

const (
	ActionStatusChange    Action = "status_change"
	ActionApproval        Action = "approval"
	ActionRejected        Action = "rejected"
	ActionVersionUploaded Action = "version_uploaded"
	ActionUpdated         Action = "updated"
	ActionDeleted         Action = "deleted"
	ActionCommented       Action = "commented"
)

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}

// IsValid checks if the action is one of the defined constants
func (a Action) IsValid() bool {
	switch a {
	case ActionStatusChange,
		ActionApproval,
		ActionRejected,
		ActionVersionUploaded,
		ActionUpdated,
		ActionDeleted,
		ActionCommented:
		return true
	default:
		return false
	}
}

// ActivityLogEntry is one row of the append-only per-document audit trail.
// Entries are written as a side effect of every workflow transition and are
// never updated or deleted.
type ActivityLogEntry struct {
	ID          int64             `json:"id"`
	DocumentID  int64             `json:"document_id"`
	UserID      string            `json:"user_id"`
	Action      Action            `json:"action"`
	Description string            `json:"description"`
	OldValue    string            `json:"old_value,omitempty"`
	NewValue    string            `json:"new_value,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
