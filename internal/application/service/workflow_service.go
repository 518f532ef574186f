package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/northdocs/docflow/internal/application/port"
	"github.com/northdocs/docflow/internal/domain/apperr"
	"github.com/northdocs/docflow/internal/domain/entity"
	"github.com/northdocs/docflow/internal/domain/workflow"
)

// WorkflowService is the document approval workflow engine: it creates
// workflows, applies decisions in strict step order, finalizes terminal
// states, and mirrors every transition onto the document record and the
// activity log.
type WorkflowService interface {
	CreateWorkflow(ctx context.Context, documentID int64, approverIDs []string, requester *entity.Identity, comments string) (*entity.Workflow, error)
	Approve(ctx context.Context, documentID int64, approver *entity.Identity, comments string) (*entity.Workflow, error)
	Reject(ctx context.Context, documentID int64, approver *entity.Identity, comments string, files []*entity.AttachmentFile) (*entity.Workflow, *entity.AttachmentUploadReport, error)
	Cancel(ctx context.Context, documentID int64, requester *entity.Identity) error
	GetActive(ctx context.Context, documentID int64, caller *entity.Identity) (*entity.Workflow, error)
	ListPendingForApprover(ctx context.Context, approver *entity.Identity) ([]*entity.Workflow, error)
	MarkEngagement(ctx context.Context, documentID int64, approver *entity.Identity, viewed, downloaded, openedInSharePoint bool) error
	AddRejectionAttachments(ctx context.Context, documentID int64, approver *entity.Identity, files []*entity.AttachmentFile) (*entity.AttachmentUploadReport, error)
}

type workflowServiceImpl struct {
	workflowRepo port.WorkflowRepository
	stepRepo     port.StepRepository
	documents    port.DocumentRecord
	attachments  AttachmentService
	activity     ActivityService
	txManager    port.TransactionManager
	logger       Logger
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(
	workflowRepo port.WorkflowRepository,
	stepRepo port.StepRepository,
	documents port.DocumentRecord,
	attachments AttachmentService,
	activity ActivityService,
	txManager port.TransactionManager,
	logger Logger,
) WorkflowService {
	return &workflowServiceImpl{
		workflowRepo: workflowRepo,
		stepRepo:     stepRepo,
		documents:    documents,
		attachments:  attachments,
		activity:     activity,
		txManager:    txManager,
		logger:       logger,
	}
}

// CreateWorkflow persists a workflow with one step per approver, step order
// following list position. Duplicate approver IDs are kept as distinct
// steps: an approver may review twice at different stages.
func (s *workflowServiceImpl) CreateWorkflow(ctx context.Context, documentID int64, approverIDs []string, requester *entity.Identity, comments string) (*entity.Workflow, error) {
	if len(approverIDs) == 0 {
		return nil, apperr.Validationf("approver list must not be empty")
	}
	for i, id := range approverIDs {
		if strings.TrimSpace(id) == "" {
			return nil, apperr.Validationf("approver at position %d is empty", i+1)
		}
	}

	doc, err := s.requireDocument(ctx, documentID, requester)
	if err != nil {
		return nil, err
	}
	if !requester.CanApprove() {
		return nil, apperr.NotAuthorizedf("role %s cannot request approval", requester.Role)
	}

	existing, err := s.workflowRepo.GetActiveByDocumentID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflictf("document %d already has an active workflow", documentID)
	}

	wf := &entity.Workflow{
		DocumentID:    documentID,
		CurrentStep:   1,
		TotalSteps:    len(approverIDs),
		OverallStatus: entity.WorkflowStatusPending,
		RequestedBy:   requester.UserID,
		RequestedAt:   time.Now().UTC(),
		Comments:      comments,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.workflowRepo.Create(txCtx, wf); err != nil {
			return fmt.Errorf("create workflow: %w", err)
		}

		steps := make([]*entity.ApprovalStep, 0, len(approverIDs))
		for i, approverID := range approverIDs {
			steps = append(steps, &entity.ApprovalStep{
				WorkflowID: wf.ID,
				ApproverID: approverID,
				StepOrder:  i + 1,
				Status:     entity.StepStatusPending,
			})
		}
		if err := s.stepRepo.CreateBatch(txCtx, steps); err != nil {
			return fmt.Errorf("create steps: %w", err)
		}
		wf.Steps = steps

		if err := s.documents.SetStatus(txCtx, documentID, entity.DocumentStatusPending); err != nil {
			return fmt.Errorf("mirror document status: %w", err)
		}

		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create workflow", "error", err, "document_id", documentID)
		return nil, err
	}

	s.activity.Record(ctx, &entity.ActivityLogEntry{
		DocumentID:  documentID,
		UserID:      requester.UserID,
		Action:      entity.ActionStatusChange,
		Description: "Approval requested",
		OldValue:    doc.Status,
		NewValue:    entity.DocumentStatusPending,
		Metadata: map[string]string{
			"workflow_id": strconv.FormatInt(wf.ID, 10),
			"total_steps": strconv.Itoa(wf.TotalSteps),
		},
	})

	s.logger.Info("Workflow created",
		"workflow_id", wf.ID,
		"document_id", documentID,
		"total_steps", wf.TotalSteps)
	return wf, nil
}

// Approve records the current approver's approval. On the final step the
// workflow finalizes approved; otherwise the pointer advances by one.
func (s *workflowServiceImpl) Approve(ctx context.Context, documentID int64, approver *entity.Identity, comments string) (*entity.Workflow, error) {
	wf, step, err := s.requireTurn(ctx, documentID, approver)
	if err != nil {
		return nil, err
	}

	isLast := wf.CurrentStep == wf.TotalSteps
	trigger := workflow.TriggerAdvance
	if isLast {
		trigger = workflow.TriggerApproveFinal
	}

	machine := workflow.NewApprovalMachine(workflow.State(wf.OverallStatus))
	if err := machine.Fire(trigger); err != nil {
		return nil, apperr.InvalidStatef("workflow %d cannot accept approval: %v", wf.ID, err)
	}
	nextStatus := machine.State().String()

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.stepRepo.Decide(txCtx, step.ID, entity.StepStatusApproved, comments); err != nil {
			return fmt.Errorf("decide step: %w", err)
		}

		if isLast {
			if err := s.workflowRepo.Finalize(txCtx, wf.ID, nextStatus); err != nil {
				return fmt.Errorf("finalize workflow: %w", err)
			}
			if err := s.documents.SetStatus(txCtx, documentID, entity.DocumentStatusApproved); err != nil {
				return fmt.Errorf("mirror document status: %w", err)
			}
			return nil
		}

		if err := s.workflowRepo.AdvanceCurrentStep(txCtx, wf.ID, wf.CurrentStep, nextStatus); err != nil {
			return fmt.Errorf("advance workflow: %w", err)
		}
		if err := s.documents.SetStatus(txCtx, documentID, entity.DocumentStatusUnderReview); err != nil {
			return fmt.Errorf("mirror document status: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to approve step",
			"error", err, "workflow_id", wf.ID, "step_order", wf.CurrentStep)
		return nil, err
	}

	s.activity.Record(ctx, &entity.ActivityLogEntry{
		DocumentID:  documentID,
		UserID:      approver.UserID,
		Action:      entity.ActionApproval,
		Description: fmt.Sprintf("Step %d of %d approved", step.StepOrder, wf.TotalSteps),
		OldValue:    wf.OverallStatus,
		NewValue:    nextStatus,
		Metadata: map[string]string{
			"workflow_id": strconv.FormatInt(wf.ID, 10),
			"step_order":  strconv.Itoa(step.StepOrder),
		},
	})

	s.logger.Info("Step approved",
		"workflow_id", wf.ID,
		"step_order", step.StepOrder,
		"final", isLast)

	return s.reload(ctx, wf.ID)
}

// Reject records the current approver's rejection. Rejection is terminal
// regardless of step position; later steps are left pending untouched.
// Attachment uploads are best-effort and never abort the rejection.
func (s *workflowServiceImpl) Reject(ctx context.Context, documentID int64, approver *entity.Identity, comments string, files []*entity.AttachmentFile) (*entity.Workflow, *entity.AttachmentUploadReport, error) {
	if strings.TrimSpace(comments) == "" {
		return nil, nil, apperr.Validationf("rejection requires comments")
	}

	wf, step, err := s.requireTurn(ctx, documentID, approver)
	if err != nil {
		return nil, nil, err
	}

	machine := workflow.NewApprovalMachine(workflow.State(wf.OverallStatus))
	if err := machine.Fire(workflow.TriggerReject); err != nil {
		return nil, nil, apperr.InvalidStatef("workflow %d cannot accept rejection: %v", wf.ID, err)
	}

	report := &entity.AttachmentUploadReport{}
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.stepRepo.Decide(txCtx, step.ID, entity.StepStatusRejected, comments); err != nil {
			return fmt.Errorf("decide step: %w", err)
		}

		if err := s.workflowRepo.Finalize(txCtx, wf.ID, entity.WorkflowStatusRejected); err != nil {
			return fmt.Errorf("finalize workflow: %w", err)
		}

		if err := s.documents.SetStatus(txCtx, documentID, entity.DocumentStatusRejected); err != nil {
			return fmt.Errorf("mirror document status: %w", err)
		}

		report = s.attachments.StoreBatch(txCtx, documentID, step.ID, approver.UserID, files)
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to reject step",
			"error", err, "workflow_id", wf.ID, "step_order", wf.CurrentStep)
		return nil, nil, err
	}

	s.activity.Record(ctx, &entity.ActivityLogEntry{
		DocumentID:  documentID,
		UserID:      approver.UserID,
		Action:      entity.ActionRejected,
		Description: fmt.Sprintf("Rejected at step %d of %d", step.StepOrder, wf.TotalSteps),
		OldValue:    wf.OverallStatus,
		NewValue:    entity.WorkflowStatusRejected,
		Metadata: map[string]string{
			"workflow_id":         strconv.FormatInt(wf.ID, 10),
			"step_order":          strconv.Itoa(step.StepOrder),
			"attachments":         strconv.Itoa(len(report.Stored)),
			"attachments_skipped": strconv.Itoa(len(report.Skipped)),
		},
	})

	s.logger.Info("Step rejected",
		"workflow_id", wf.ID,
		"step_order", step.StepOrder,
		"attachments_stored", len(report.Stored),
		"attachments_skipped", len(report.Skipped))

	reloaded, err := s.reload(ctx, wf.ID)
	if err != nil {
		return nil, nil, err
	}
	return reloaded, report, nil
}

// Cancel hard-deletes the active workflow, cascading to its steps, and
// reverts the document to draft. Irreversible: a new CreateWorkflow starts
// a fresh sequence from step 1.
func (s *workflowServiceImpl) Cancel(ctx context.Context, documentID int64, requester *entity.Identity) error {
	if _, err := s.requireDocument(ctx, documentID, requester); err != nil {
		return err
	}

	wf, err := s.workflowRepo.GetActiveByDocumentID(ctx, documentID)
	if err != nil {
		return err
	}
	if wf == nil {
		latest, err := s.workflowRepo.GetLatestByDocumentID(ctx, documentID)
		if err != nil {
			return err
		}
		if latest != nil && latest.IsTerminal() {
			return apperr.InvalidStatef("workflow for document %d is already %s", documentID, latest.OverallStatus)
		}
		return apperr.NotFoundf("no active workflow for document %d", documentID)
	}

	if wf.RequestedBy != requester.UserID && requester.Role != entity.RoleAdmin {
		return apperr.NotAuthorizedf("only the requester or an admin may cancel")
	}

	machine := workflow.NewApprovalMachine(workflow.State(wf.OverallStatus))
	if !machine.CanFire(workflow.TriggerCancel) {
		return apperr.InvalidStatef("workflow %d is not cancellable", wf.ID)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.workflowRepo.Delete(txCtx, wf.ID); err != nil {
			return fmt.Errorf("delete workflow: %w", err)
		}
		if err := s.documents.SetStatus(txCtx, documentID, entity.DocumentStatusDraft); err != nil {
			return fmt.Errorf("mirror document status: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to cancel workflow", "error", err, "workflow_id", wf.ID)
		return err
	}

	s.activity.Record(ctx, &entity.ActivityLogEntry{
		DocumentID:  documentID,
		UserID:      requester.UserID,
		Action:      entity.ActionStatusChange,
		Description: "Approval cancelled",
		OldValue:    wf.OverallStatus,
		NewValue:    entity.DocumentStatusDraft,
		Metadata: map[string]string{
			"workflow_id": strconv.FormatInt(wf.ID, 10),
		},
	})

	s.logger.Info("Workflow cancelled", "workflow_id", wf.ID, "document_id", documentID)
	return nil
}

// GetActive retrieves the active workflow with steps for a document
func (s *workflowServiceImpl) GetActive(ctx context.Context, documentID int64, caller *entity.Identity) (*entity.Workflow, error) {
	if _, err := s.requireDocument(ctx, documentID, caller); err != nil {
		return nil, err
	}

	wf, err := s.workflowRepo.GetActiveByDocumentID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, apperr.NotFoundf("no active workflow for document %d", documentID)
	}

	wf.Steps, err = s.stepRepo.GetByWorkflowID(ctx, wf.ID)
	if err != nil {
		return nil, err
	}
	return wf, nil
}

// ListPendingForApprover returns workflows whose current step awaits the
// caller, scoped to the caller's organization. Pure read, no mutation.
func (s *workflowServiceImpl) ListPendingForApprover(ctx context.Context, approver *entity.Identity) ([]*entity.Workflow, error) {
	workflows, err := s.workflowRepo.ListPendingForApprover(ctx, approver.UserID, approver.OrganizationID)
	if err != nil {
		s.logger.Error("Failed to list pending workflows", "error", err, "approver_id", approver.UserID)
		return nil, err
	}

	for _, wf := range workflows {
		wf.Steps, err = s.stepRepo.GetByWorkflowID(ctx, wf.ID)
		if err != nil {
			return nil, err
		}
	}
	return workflows, nil
}

// MarkEngagement sets advisory engagement flags on the caller's current
// step. Flags never gate a transition.
func (s *workflowServiceImpl) MarkEngagement(ctx context.Context, documentID int64, approver *entity.Identity, viewed, downloaded, openedInSharePoint bool) error {
	wf, step, err := s.requireTurn(ctx, documentID, approver)
	if err != nil {
		return err
	}

	if err := s.stepRepo.SetEngagement(ctx, step.ID, viewed, downloaded, openedInSharePoint); err != nil {
		s.logger.Error("Failed to set engagement flags", "error", err, "workflow_id", wf.ID)
		return err
	}
	return nil
}

// AddRejectionAttachments stores supplementary files against an
// already-rejected step, by the approver who rejected it.
func (s *workflowServiceImpl) AddRejectionAttachments(ctx context.Context, documentID int64, approver *entity.Identity, files []*entity.AttachmentFile) (*entity.AttachmentUploadReport, error) {
	if len(files) == 0 {
		return nil, apperr.Validationf("no files provided")
	}

	if _, err := s.requireDocument(ctx, documentID, approver); err != nil {
		return nil, err
	}

	wf, err := s.workflowRepo.GetLatestByDocumentID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if wf == nil || wf.OverallStatus != entity.WorkflowStatusRejected {
		return nil, apperr.NotFoundf("no rejected workflow for document %d", documentID)
	}

	step, err := s.stepRepo.GetCurrent(ctx, wf.ID, wf.CurrentStep)
	if err != nil {
		return nil, err
	}
	if step == nil || step.Status != entity.StepStatusRejected {
		return nil, apperr.NotFoundf("no rejected step for workflow %d", wf.ID)
	}
	if step.ApproverID != approver.UserID {
		return nil, apperr.NotAuthorizedf("only the rejecting approver may add attachments")
	}

	report := s.attachments.StoreBatch(ctx, documentID, step.ID, approver.UserID, files)

	s.activity.Record(ctx, &entity.ActivityLogEntry{
		DocumentID:  documentID,
		UserID:      approver.UserID,
		Action:      entity.ActionUpdated,
		Description: "Rejection attachments added",
		Metadata: map[string]string{
			"workflow_id": strconv.FormatInt(wf.ID, 10),
			"attachments": strconv.Itoa(len(report.Stored)),
		},
	})

	return report, nil
}

// requireDocument loads the document and checks organization scope
func (s *workflowServiceImpl) requireDocument(ctx context.Context, documentID int64, caller *entity.Identity) (*entity.Document, error) {
	doc, err := s.documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperr.NotFoundf("document %d", documentID)
	}
	if doc.OrganizationID != caller.OrganizationID {
		return nil, apperr.NotAuthorizedf("document outside caller organization")
	}
	return doc, nil
}

// requireTurn enforces the turn invariant at read time: the active
// workflow's current step must belong to the caller and still be pending.
// The conditional update in StepRepository.Decide re-enforces it at write
// time so a concurrent decision cannot double-apply. A decision against a
// document whose latest workflow already finished is an invalid-state
// error, not a missing workflow.
func (s *workflowServiceImpl) requireTurn(ctx context.Context, documentID int64, approver *entity.Identity) (*entity.Workflow, *entity.ApprovalStep, error) {
	if _, err := s.requireDocument(ctx, documentID, approver); err != nil {
		return nil, nil, err
	}

	wf, err := s.workflowRepo.GetActiveByDocumentID(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	if wf == nil {
		latest, err := s.workflowRepo.GetLatestByDocumentID(ctx, documentID)
		if err != nil {
			return nil, nil, err
		}
		if latest != nil && latest.IsTerminal() {
			return nil, nil, apperr.InvalidStatef("workflow for document %d is already %s", documentID, latest.OverallStatus)
		}
		return nil, nil, apperr.NotFoundf("no active workflow for document %d", documentID)
	}

	step, err := s.stepRepo.GetCurrent(ctx, wf.ID, wf.CurrentStep)
	if err != nil {
		return nil, nil, err
	}
	if step == nil {
		return nil, nil, apperr.Conflictf("workflow %d has no step at position %d", wf.ID, wf.CurrentStep)
	}

	if step.ApproverID != approver.UserID || step.Status != entity.StepStatusPending {
		return nil, nil, apperr.NotAuthorizedf("it is not the caller's turn to decide")
	}

	return wf, step, nil
}

func (s *workflowServiceImpl) reload(ctx context.Context, workflowID int64) (*entity.Workflow, error) {
	wf, err := s.workflowRepo.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, apperr.NotFoundf("workflow %d", workflowID)
	}
	wf.Steps, err = s.stepRepo.GetByWorkflowID(ctx, wf.ID)
	if err != nil {
		return nil, err
	}
	return wf, nil
}
