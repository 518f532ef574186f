package entity

import "time"

// Overall status constants for Workflow
const (
	WorkflowStatusPending     = "pending"
	WorkflowStatusUnderReview = "under-review"
	WorkflowStatusApproved    = "approved"
	WorkflowStatusRejected    = "rejected"
)

// Step status constants for ApprovalStep
const (
	StepStatusPending  = "pending"
	StepStatusApproved = "approved"
	StepStatusRejected = "rejected"
)

// Workflow represents a sequential approval workflow over a document.
// At most one workflow per document may be active (pending or under-review)
// at a time. CurrentStep is a 1-based index into the ordered steps and is
// frozen once the workflow reaches a terminal status.
type Workflow struct {
	ID            int64      `json:"id"`
	DocumentID    int64      `json:"document_id"`
	CurrentStep   int        `json:"current_step"`
	TotalSteps    int        `json:"total_steps"`
	OverallStatus string     `json:"overall_status"`
	RequestedBy   string     `json:"requested_by"`
	RequestedAt   time.Time  `json:"requested_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Comments      string     `json:"comments,omitempty"`

	Steps []*ApprovalStep `json:"steps,omitempty"`
}

// IsTerminal returns true once the workflow has been approved or rejected.
func (w *Workflow) IsTerminal() bool {
	return w.OverallStatus == WorkflowStatusApproved || w.OverallStatus == WorkflowStatusRejected
}

// IsActive returns true while the workflow still accepts decisions.
func (w *Workflow) IsActive() bool {
	return w.OverallStatus == WorkflowStatusPending || w.OverallStatus == WorkflowStatusUnderReview
}

// ApprovalStep represents one approver's turn in a workflow. StepOrder is
// 1-based and unique within the workflow; the step whose order equals the
// workflow's CurrentStep is the only one a decision may be recorded against.
type ApprovalStep struct {
	ID         int64      `json:"id"`
	WorkflowID int64      `json:"workflow_id"`
	ApproverID string     `json:"approver_id"`
	StepOrder  int        `json:"step_order"`
	Status     string     `json:"status"`
	Comments   string     `json:"comments,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	RejectedAt *time.Time `json:"rejected_at,omitempty"`

	// Engagement flags are advisory only and never gate a transition.
	ViewedDocument     bool `json:"viewed_document"`
	DownloadedDocument bool `json:"downloaded_document"`
	OpenedInSharePoint bool `json:"opened_in_sharepoint"`
}

// IsCurrent reports whether this step is the workflow's current turn.
func (s *ApprovalStep) IsCurrent(w *Workflow) bool {
	return w.IsActive() && s.StepOrder == w.CurrentStep
}
