package port

import (
	"context"

	"github.com/northdocs/docflow/internal/domain/entity"
)

// WorkflowRepository defines persistence operations for Workflow
type WorkflowRepository interface {
	// Create persists a workflow row. The one-active-workflow-per-document
	// invariant is backed by a partial unique index; a violation surfaces
	// as apperr.ErrConflict.
	Create(ctx context.Context, w *entity.Workflow) error

	// GetByID retrieves a workflow by ID, nil when absent
	GetByID(ctx context.Context, id int64) (*entity.Workflow, error)

	// GetActiveByDocumentID retrieves the workflow with status in
	// {pending, under-review} for a document, nil when none exists
	GetActiveByDocumentID(ctx context.Context, documentID int64) (*entity.Workflow, error)

	// GetLatestByDocumentID retrieves the most recently requested workflow
	// for a document regardless of status, nil when none exists
	GetLatestByDocumentID(ctx context.Context, documentID int64) (*entity.Workflow, error)

	// AdvanceCurrentStep moves the current-step pointer forward by one,
	// guarded on the expected current value. Returns apperr.ErrConflict
	// when the guard matches no row.
	AdvanceCurrentStep(ctx context.Context, id int64, fromStep int, status string) error

	// Finalize sets a terminal overall status and completed_at, guarded on
	// the workflow still being active
	Finalize(ctx context.Context, id int64, status string) error

	// Delete hard-deletes the workflow; steps and attachments cascade
	Delete(ctx context.Context, id int64) error

	// ListPendingForApprover returns active workflows whose current step
	// awaits the given approver, scoped to the organization
	ListPendingForApprover(ctx context.Context, approverID, organizationID string) ([]*entity.Workflow, error)
}

// StepRepository defines persistence operations for ApprovalStep
type StepRepository interface {
	// CreateBatch persists all steps of a workflow in one statement set,
	// stepOrder strictly 1..N
	CreateBatch(ctx context.Context, steps []*entity.ApprovalStep) error

	// GetByWorkflowID retrieves all steps ordered by step_order
	GetByWorkflowID(ctx context.Context, workflowID int64) ([]*entity.ApprovalStep, error)

	// GetByID retrieves a step by ID, nil when absent
	GetByID(ctx context.Context, id int64) (*entity.ApprovalStep, error)

	// GetCurrent retrieves the step matching the workflow's current pointer,
	// nil when absent
	GetCurrent(ctx context.Context, workflowID int64, stepOrder int) (*entity.ApprovalStep, error)

	// Decide records an approve/reject decision against a step, guarded on
	// status still being pending. Returns apperr.ErrConflict when the guard
	// matches no row (a concurrent decision won).
	Decide(ctx context.Context, stepID int64, status, comments string) error

	// SetEngagement updates the advisory engagement flags on a step
	SetEngagement(ctx context.Context, stepID int64, viewed, downloaded, openedInSharePoint bool) error
}

// AttachmentRepository defines persistence operations for RejectionAttachment
type AttachmentRepository interface {
	Create(ctx context.Context, att *entity.RejectionAttachment) error
	GetByStepID(ctx context.Context, stepID int64) ([]*entity.RejectionAttachment, error)
	GetByID(ctx context.Context, id int64) (*entity.RejectionAttachment, error)
}

// ActivityLogRepository defines persistence operations for the append-only
// activity log. There is deliberately no update or delete.
type ActivityLogRepository interface {
	Create(ctx context.Context, e *entity.ActivityLogEntry) error
	ListByDocumentID(ctx context.Context, documentID int64, limit, offset int) ([]*entity.ActivityLogEntry, error)
}

// DocumentRecord is the external collaborator holding the denormalized
// document status the engine mirrors workflow state onto. The engine writes
// the status field but does not own the document lifecycle.
type DocumentRecord interface {
	Get(ctx context.Context, documentID int64) (*entity.Document, error)
	SetStatus(ctx context.Context, documentID int64, status string) error
}

// TransactionManager handles database transactions. The transaction is
// carried in the context so repositories stay transaction-transparent.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
