package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/northdocs/docflow/internal/domain/apperr"
	"github.com/northdocs/docflow/internal/domain/entity"
)

type workflowFixture struct {
	workflowRepo *mockWorkflowRepo
	stepRepo     *mockStepRepo
	documents    *mockDocumentRecord
	attachments  *mockAttachmentService
	activity     *mockActivityService
	txManager    *mockTxManager
	service      WorkflowService
}

func newWorkflowFixture() *workflowFixture {
	f := &workflowFixture{
		workflowRepo: &mockWorkflowRepo{},
		stepRepo:     &mockStepRepo{},
		documents:    &mockDocumentRecord{},
		attachments:  &mockAttachmentService{},
		activity:     &mockActivityService{},
		txManager:    &mockTxManager{},
	}
	f.service = NewWorkflowService(
		f.workflowRepo,
		f.stepRepo,
		f.documents,
		f.attachments,
		f.activity,
		f.txManager,
		&mockLogger{},
	)
	return f
}

func member(userID string) *entity.Identity {
	return &entity.Identity{UserID: userID, OrganizationID: "org1", Role: entity.RoleMember}
}

// activeWorkflow wires the fixture with an active workflow whose current
// step awaits the given approver.
func (f *workflowFixture) activeWorkflow(currentStep, totalSteps int, approverID, overallStatus string) {
	wf := &entity.Workflow{
		ID:            7,
		DocumentID:    10,
		CurrentStep:   currentStep,
		TotalSteps:    totalSteps,
		OverallStatus: overallStatus,
		RequestedBy:   "owner",
	}
	f.workflowRepo.getActiveByDocumentIDFunc = func(ctx context.Context, documentID int64) (*entity.Workflow, error) {
		return wf, nil
	}
	f.workflowRepo.getByIDFunc = func(ctx context.Context, id int64) (*entity.Workflow, error) {
		return wf, nil
	}
	f.stepRepo.getCurrentFunc = func(ctx context.Context, workflowID int64, stepOrder int) (*entity.ApprovalStep, error) {
		return &entity.ApprovalStep{
			ID:         int64(100 + currentStep),
			WorkflowID: wf.ID,
			ApproverID: approverID,
			StepOrder:  currentStep,
			Status:     entity.StepStatusPending,
		}, nil
	}
}

func TestCreateWorkflow(t *testing.T) {
	t.Run("creates steps in list order", func(t *testing.T) {
		f := newWorkflowFixture()

		var createdSteps []*entity.ApprovalStep
		f.stepRepo.createBatchFunc = func(ctx context.Context, steps []*entity.ApprovalStep) error {
			createdSteps = steps
			return nil
		}

		wf, err := f.service.CreateWorkflow(context.Background(), 10, []string{"u1", "u2", "u3"}, member("owner"), "please review")
		if err != nil {
			t.Fatalf("CreateWorkflow() unexpected error: %v", err)
		}

		if wf.CurrentStep != 1 || wf.TotalSteps != 3 || wf.OverallStatus != entity.WorkflowStatusPending {
			t.Errorf("workflow = step %d/%d status %s, want 1/3 pending", wf.CurrentStep, wf.TotalSteps, wf.OverallStatus)
		}
		if len(createdSteps) != 3 {
			t.Fatalf("created %d steps, want 3", len(createdSteps))
		}
		for i, step := range createdSteps {
			if step.StepOrder != i+1 || step.Status != entity.StepStatusPending {
				t.Errorf("step %d = order %d status %s", i, step.StepOrder, step.Status)
			}
		}
		if createdSteps[1].ApproverID != "u2" {
			t.Errorf("step 2 approver = %s, want u2", createdSteps[1].ApproverID)
		}

		if len(f.documents.statusWrites) != 1 || f.documents.statusWrites[0] != entity.DocumentStatusPending {
			t.Errorf("document status writes = %v, want [pending]", f.documents.statusWrites)
		}
		if len(f.activity.recorded) != 1 || f.activity.recorded[0].Action != entity.ActionStatusChange {
			t.Errorf("activity = %+v, want one status_change entry", f.activity.recorded)
		}
	})

	t.Run("duplicate approver IDs occupy distinct steps", func(t *testing.T) {
		f := newWorkflowFixture()

		var createdSteps []*entity.ApprovalStep
		f.stepRepo.createBatchFunc = func(ctx context.Context, steps []*entity.ApprovalStep) error {
			createdSteps = steps
			return nil
		}

		_, err := f.service.CreateWorkflow(context.Background(), 10, []string{"u1", "u2", "u1"}, member("owner"), "")
		if err != nil {
			t.Fatalf("CreateWorkflow() unexpected error: %v", err)
		}
		if len(createdSteps) != 3 {
			t.Fatalf("created %d steps, want 3", len(createdSteps))
		}
		if createdSteps[0].ApproverID != "u1" || createdSteps[2].ApproverID != "u1" {
			t.Errorf("duplicate approver not preserved: %s, %s", createdSteps[0].ApproverID, createdSteps[2].ApproverID)
		}
	})

	t.Run("empty approver list fails validation", func(t *testing.T) {
		f := newWorkflowFixture()

		_, err := f.service.CreateWorkflow(context.Background(), 10, nil, member("owner"), "")
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})

	t.Run("existing active workflow conflicts", func(t *testing.T) {
		f := newWorkflowFixture()
		f.workflowRepo.getActiveByDocumentIDFunc = func(ctx context.Context, documentID int64) (*entity.Workflow, error) {
			return &entity.Workflow{ID: 5, OverallStatus: entity.WorkflowStatusPending}, nil
		}

		created := false
		f.workflowRepo.createFunc = func(ctx context.Context, w *entity.Workflow) error {
			created = true
			return nil
		}

		_, err := f.service.CreateWorkflow(context.Background(), 10, []string{"u1"}, member("owner"), "")
		if !errors.Is(err, apperr.ErrConflict) {
			t.Errorf("error = %v, want ErrConflict", err)
		}
		if created {
			t.Error("workflow row created despite conflict")
		}
	})

	t.Run("unknown document", func(t *testing.T) {
		f := newWorkflowFixture()
		f.documents.getFunc = func(ctx context.Context, documentID int64) (*entity.Document, error) {
			return nil, nil
		}

		_, err := f.service.CreateWorkflow(context.Background(), 99, []string{"u1"}, member("owner"), "")
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("foreign organization", func(t *testing.T) {
		f := newWorkflowFixture()

		requester := &entity.Identity{UserID: "owner", OrganizationID: "org2", Role: entity.RoleMember}
		_, err := f.service.CreateWorkflow(context.Background(), 10, []string{"u1"}, requester, "")
		if !errors.Is(err, apperr.ErrNotAuthorized) {
			t.Errorf("error = %v, want ErrNotAuthorized", err)
		}
	})

	t.Run("viewer cannot request approval", func(t *testing.T) {
		f := newWorkflowFixture()

		viewer := &entity.Identity{UserID: "v1", OrganizationID: "org1", Role: entity.RoleViewer}
		_, err := f.service.CreateWorkflow(context.Background(), 10, []string{"u1"}, viewer, "")
		if !errors.Is(err, apperr.ErrNotAuthorized) {
			t.Errorf("error = %v, want ErrNotAuthorized", err)
		}
	})
}

func TestApprove(t *testing.T) {
	t.Run("non-final approval advances the pointer", func(t *testing.T) {
		f := newWorkflowFixture()
		f.activeWorkflow(1, 3, "u1", entity.WorkflowStatusPending)

		var advancedFrom int
		var advancedTo string
		f.workflowRepo.advanceCurrentStepFunc = func(ctx context.Context, id int64, fromStep int, status string) error {
			advancedFrom, advancedTo = fromStep, status
			return nil
		}
		finalized := false
		f.workflowRepo.finalizeFunc = func(ctx context.Context, id int64, status string) error {
			finalized = true
			return nil
		}

		_, err := f.service.Approve(context.Background(), 10, member("u1"), "looks good")
		if err != nil {
			t.Fatalf("Approve() unexpected error: %v", err)
		}

		if advancedFrom != 1 || advancedTo != entity.WorkflowStatusUnderReview {
			t.Errorf("advance = from %d to %s, want from 1 to under-review", advancedFrom, advancedTo)
		}
		if finalized {
			t.Error("non-final approval finalized the workflow")
		}
		if len(f.documents.statusWrites) != 1 || f.documents.statusWrites[0] != entity.DocumentStatusUnderReview {
			t.Errorf("document status writes = %v, want [under-review]", f.documents.statusWrites)
		}
		if len(f.activity.recorded) != 1 || f.activity.recorded[0].Action != entity.ActionApproval {
			t.Errorf("activity = %+v, want one approval entry", f.activity.recorded)
		}
	})

	t.Run("single approver workflow approves directly", func(t *testing.T) {
		f := newWorkflowFixture()
		f.activeWorkflow(1, 1, "u1", entity.WorkflowStatusPending)

		var finalStatus string
		f.workflowRepo.finalizeFunc = func(ctx context.Context, id int64, status string) error {
			finalStatus = status
			return nil
		}
		advanced := false
		f.workflowRepo.advanceCurrentStepFunc = func(ctx context.Context, id int64, fromStep int, status string) error {
			advanced = true
			return nil
		}

		_, err := f.service.Approve(context.Background(), 10, member("u1"), "")
		if err != nil {
			t.Fatalf("Approve() unexpected error: %v", err)
		}

		if finalStatus != entity.WorkflowStatusApproved {
			t.Errorf("finalize status = %s, want approved", finalStatus)
		}
		if advanced {
			t.Error("pointer advanced past totalSteps")
		}
		if len(f.documents.statusWrites) != 1 || f.documents.statusWrites[0] != entity.DocumentStatusApproved {
			t.Errorf("document status writes = %v, want [approved]", f.documents.statusWrites)
		}
	})

	t.Run("final step of multi-step workflow finalizes", func(t *testing.T) {
		f := newWorkflowFixture()
		f.activeWorkflow(3, 3, "u3", entity.WorkflowStatusUnderReview)

		var finalStatus string
		f.workflowRepo.finalizeFunc = func(ctx context.Context, id int64, status string) error {
			finalStatus = status
			return nil
		}

		_, err := f.service.Approve(context.Background(), 10, member("u3"), "")
		if err != nil {
			t.Fatalf("Approve() unexpected error: %v", err)
		}
		if finalStatus != entity.WorkflowStatusApproved {
			t.Errorf("finalize status = %s, want approved", finalStatus)
		}
	})

	t.Run("out of turn approver is refused", func(t *testing.T) {
		f := newWorkflowFixture()
		f.activeWorkflow(1, 3, "u1", entity.WorkflowStatusPending)

		decided := false
		f.stepRepo.decideFunc = func(ctx context.Context, stepID int64, status, comments string) error {
			decided = true
			return nil
		}

		_, err := f.service.Approve(context.Background(), 10, member("u2"), "")
		if !errors.Is(err, apperr.ErrNotAuthorized) {
			t.Errorf("error = %v, want ErrNotAuthorized", err)
		}
		if decided {
			t.Error("decision recorded for out-of-turn approver")
		}
		if len(f.documents.statusWrites) != 0 {
			t.Errorf("document mutated on refused approval: %v", f.documents.statusWrites)
		}
	})

	t.Run("no active workflow", func(t *testing.T) {
		f := newWorkflowFixture()

		_, err := f.service.Approve(context.Background(), 10, member("u1"), "")
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("terminal workflow refuses further approval", func(t *testing.T) {
		f := newWorkflowFixture()
		f.workflowRepo.getLatestByDocumentIDFunc = func(ctx context.Context, documentID int64) (*entity.Workflow, error) {
			return &entity.Workflow{
				ID: 7, DocumentID: 10, CurrentStep: 1, TotalSteps: 1,
				OverallStatus: entity.WorkflowStatusApproved, RequestedBy: "owner",
			}, nil
		}

		_, err := f.service.Approve(context.Background(), 10, member("u1"), "")
		if !errors.Is(err, apperr.ErrInvalidState) {
			t.Errorf("error = %v, want ErrInvalidState", err)
		}
		if len(f.documents.statusWrites) != 0 {
			t.Errorf("document mutated on terminal workflow: %v", f.documents.statusWrites)
		}
	})

	t.Run("concurrent decision race surfaces conflict", func(t *testing.T) {
		f := newWorkflowFixture()
		f.activeWorkflow(1, 2, "u1", entity.WorkflowStatusPending)

		f.stepRepo.decideFunc = func(ctx context.Context, stepID int64, status, comments string) error {
			return apperr.Conflictf("step %d already decided", stepID)
		}

		_, err := f.service.Approve(context.Background(), 10, member("u1"), "")
		if !errors.Is(err, apperr.ErrConflict) {
			t.Errorf("error = %v, want ErrConflict", err)
		}
	})
}

func TestReject(t *testing.T) {
	t.Run("rejection is terminal at any step", func(t *testing.T) {
		f := newWorkflowFixture()
		f.activeWorkflow(2, 3, "u2", entity.WorkflowStatusUnderReview)

		var decidedStepID int64
		var decidedStatus string
		decideCalls := 0
		f.stepRepo.decideFunc = func(ctx context.Context, stepID int64, status, comments string) error {
			decideCalls++
			decidedStepID, decidedStatus = stepID, status
			return nil
		}

		var finalStatus string
		f.workflowRepo.finalizeFunc = func(ctx context.Context, id int64, status string) error {
			finalStatus = status
			return nil
		}

		_, report, err := f.service.Reject(context.Background(), 10, member("u2"), "needs revision", nil)
		if err != nil {
			t.Fatalf("Reject() unexpected error: %v", err)
		}

		if decideCalls != 1 || decidedStepID != 102 || decidedStatus != entity.StepStatusRejected {
			t.Errorf("decide calls = %d step %d status %s, want one rejected decision on the current step",
				decideCalls, decidedStepID, decidedStatus)
		}
		if finalStatus != entity.WorkflowStatusRejected {
			t.Errorf("finalize status = %s, want rejected", finalStatus)
		}
		if len(f.documents.statusWrites) != 1 || f.documents.statusWrites[0] != entity.DocumentStatusRejected {
			t.Errorf("document status writes = %v, want [rejected]", f.documents.statusWrites)
		}
		if len(report.Stored) != 0 || len(report.Skipped) != 0 {
			t.Errorf("report = %+v, want empty", report)
		}
		if len(f.activity.recorded) != 1 || f.activity.recorded[0].Action != entity.ActionRejected {
			t.Errorf("activity = %+v, want one rejected entry", f.activity.recorded)
		}
	})

	t.Run("empty comments fail before any mutation", func(t *testing.T) {
		f := newWorkflowFixture()
		f.activeWorkflow(1, 3, "u1", entity.WorkflowStatusPending)

		txStarted := false
		f.txManager.withTransactionFunc = func(ctx context.Context, fn func(ctx context.Context) error) error {
			txStarted = true
			return fn(ctx)
		}

		_, _, err := f.service.Reject(context.Background(), 10, member("u1"), "   ", nil)
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
		if txStarted {
			t.Error("transaction started despite validation failure")
		}
		if len(f.documents.statusWrites) != 0 {
			t.Errorf("document mutated: %v", f.documents.statusWrites)
		}
	})

	t.Run("partial upload failure does not abort rejection", func(t *testing.T) {
		f := newWorkflowFixture()
		f.activeWorkflow(1, 2, "u1", entity.WorkflowStatusPending)

		f.attachments.storeBatchFunc = func(ctx context.Context, documentID, stepID int64, uploadedBy string, files []*entity.AttachmentFile) *entity.AttachmentUploadReport {
			return &entity.AttachmentUploadReport{
				Stored:  []*entity.RejectionAttachment{{StepID: stepID, FileName: files[0].FileName}},
				Skipped: []string{files[1].FileName},
			}
		}

		files := []*entity.AttachmentFile{
			{FileName: "a.pdf", Content: []byte("a")},
			{FileName: "b.pdf", Content: []byte("b")},
		}

		wf, report, err := f.service.Reject(context.Background(), 10, member("u1"), "broken figures", files)
		if err != nil {
			t.Fatalf("Reject() unexpected error: %v", err)
		}

		if len(report.Stored) != 1 || len(report.Skipped) != 1 {
			t.Errorf("report = %d stored %d skipped, want 1/1", len(report.Stored), len(report.Skipped))
		}
		if wf == nil {
			t.Fatal("Reject() returned nil workflow")
		}
		if got := f.activity.recorded[0].Metadata["attachments"]; got != "1" {
			t.Errorf("activity attachments metadata = %s, want 1", got)
		}
	})

	t.Run("wrong turn is refused", func(t *testing.T) {
		f := newWorkflowFixture()
		f.activeWorkflow(1, 3, "u1", entity.WorkflowStatusPending)

		_, _, err := f.service.Reject(context.Background(), 10, member("u3"), "nope", nil)
		if !errors.Is(err, apperr.ErrNotAuthorized) {
			t.Errorf("error = %v, want ErrNotAuthorized", err)
		}
	})

	t.Run("terminal workflow refuses rejection", func(t *testing.T) {
		f := newWorkflowFixture()
		f.workflowRepo.getLatestByDocumentIDFunc = func(ctx context.Context, documentID int64) (*entity.Workflow, error) {
			return &entity.Workflow{
				ID: 7, DocumentID: 10, CurrentStep: 2, TotalSteps: 3,
				OverallStatus: entity.WorkflowStatusRejected, RequestedBy: "owner",
			}, nil
		}

		_, _, err := f.service.Reject(context.Background(), 10, member("u2"), "again", nil)
		if !errors.Is(err, apperr.ErrInvalidState) {
			t.Errorf("error = %v, want ErrInvalidState", err)
		}
	})
}

func TestCancel(t *testing.T) {
	t.Run("requester cancels and document reverts to draft", func(t *testing.T) {
		f := newWorkflowFixture()
		f.workflowRepo.getActiveByDocumentIDFunc = func(ctx context.Context, documentID int64) (*entity.Workflow, error) {
			return &entity.Workflow{
				ID: 7, DocumentID: 10, CurrentStep: 2, TotalSteps: 3,
				OverallStatus: entity.WorkflowStatusUnderReview,
				RequestedBy:   "owner",
			}, nil
		}

		var deletedID int64
		f.workflowRepo.deleteFunc = func(ctx context.Context, id int64) error {
			deletedID = id
			return nil
		}

		err := f.service.Cancel(context.Background(), 10, member("owner"))
		if err != nil {
			t.Fatalf("Cancel() unexpected error: %v", err)
		}

		if deletedID != 7 {
			t.Errorf("deleted workflow = %d, want 7", deletedID)
		}
		if len(f.documents.statusWrites) != 1 || f.documents.statusWrites[0] != entity.DocumentStatusDraft {
			t.Errorf("document status writes = %v, want [draft]", f.documents.statusWrites)
		}

		entry := f.activity.recorded[0]
		if entry.OldValue != entity.WorkflowStatusUnderReview || entry.NewValue != entity.DocumentStatusDraft {
			t.Errorf("activity old/new = %s/%s, want under-review/draft", entry.OldValue, entry.NewValue)
		}
	})

	t.Run("admin may cancel another requester's workflow", func(t *testing.T) {
		f := newWorkflowFixture()
		f.workflowRepo.getActiveByDocumentIDFunc = func(ctx context.Context, documentID int64) (*entity.Workflow, error) {
			return &entity.Workflow{ID: 7, DocumentID: 10, OverallStatus: entity.WorkflowStatusPending, RequestedBy: "owner"}, nil
		}

		admin := &entity.Identity{UserID: "boss", OrganizationID: "org1", Role: entity.RoleAdmin}
		if err := f.service.Cancel(context.Background(), 10, admin); err != nil {
			t.Fatalf("Cancel() unexpected error: %v", err)
		}
	})

	t.Run("non-requester member is refused", func(t *testing.T) {
		f := newWorkflowFixture()
		f.workflowRepo.getActiveByDocumentIDFunc = func(ctx context.Context, documentID int64) (*entity.Workflow, error) {
			return &entity.Workflow{ID: 7, DocumentID: 10, OverallStatus: entity.WorkflowStatusPending, RequestedBy: "owner"}, nil
		}

		err := f.service.Cancel(context.Background(), 10, member("someone-else"))
		if !errors.Is(err, apperr.ErrNotAuthorized) {
			t.Errorf("error = %v, want ErrNotAuthorized", err)
		}
	})

	t.Run("no active workflow", func(t *testing.T) {
		f := newWorkflowFixture()

		err := f.service.Cancel(context.Background(), 10, member("owner"))
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("terminal workflow cannot be cancelled", func(t *testing.T) {
		f := newWorkflowFixture()
		f.workflowRepo.getLatestByDocumentIDFunc = func(ctx context.Context, documentID int64) (*entity.Workflow, error) {
			return &entity.Workflow{
				ID: 7, DocumentID: 10, CurrentStep: 1, TotalSteps: 1,
				OverallStatus: entity.WorkflowStatusApproved, RequestedBy: "owner",
			}, nil
		}

		err := f.service.Cancel(context.Background(), 10, member("owner"))
		if !errors.Is(err, apperr.ErrInvalidState) {
			t.Errorf("error = %v, want ErrInvalidState", err)
		}
	})
}

func TestListPendingForApprover(t *testing.T) {
	f := newWorkflowFixture()

	var gotApprover, gotOrg string
	f.workflowRepo.listPendingForApproverFunc = func(ctx context.Context, approverID, organizationID string) ([]*entity.Workflow, error) {
		gotApprover, gotOrg = approverID, organizationID
		return []*entity.Workflow{{ID: 1}, {ID: 2}}, nil
	}

	workflows, err := f.service.ListPendingForApprover(context.Background(), member("u2"))
	if err != nil {
		t.Fatalf("ListPendingForApprover() unexpected error: %v", err)
	}

	if gotApprover != "u2" || gotOrg != "org1" {
		t.Errorf("filter = %s/%s, want u2/org1", gotApprover, gotOrg)
	}
	if len(workflows) != 2 {
		t.Errorf("got %d workflows, want 2", len(workflows))
	}
}

func TestMarkEngagement(t *testing.T) {
	t.Run("sets flags on the caller's current step", func(t *testing.T) {
		f := newWorkflowFixture()
		f.activeWorkflow(2, 3, "u2", entity.WorkflowStatusUnderReview)

		var gotViewed, gotDownloaded bool
		f.stepRepo.setEngagementFunc = func(ctx context.Context, stepID int64, viewed, downloaded, openedInSharePoint bool) error {
			gotViewed, gotDownloaded = viewed, downloaded
			return nil
		}

		err := f.service.MarkEngagement(context.Background(), 10, member("u2"), true, true, false)
		if err != nil {
			t.Fatalf("MarkEngagement() unexpected error: %v", err)
		}
		if !gotViewed || !gotDownloaded {
			t.Errorf("flags = viewed %v downloaded %v, want true/true", gotViewed, gotDownloaded)
		}
	})

	t.Run("not the current approver", func(t *testing.T) {
		f := newWorkflowFixture()
		f.activeWorkflow(2, 3, "u2", entity.WorkflowStatusUnderReview)

		err := f.service.MarkEngagement(context.Background(), 10, member("u1"), true, false, false)
		if !errors.Is(err, apperr.ErrNotAuthorized) {
			t.Errorf("error = %v, want ErrNotAuthorized", err)
		}
	})
}

func TestAddRejectionAttachments(t *testing.T) {
	rejected := func(f *workflowFixture, approverID string) {
		f.workflowRepo.getLatestByDocumentIDFunc = func(ctx context.Context, documentID int64) (*entity.Workflow, error) {
			return &entity.Workflow{
				ID: 7, DocumentID: 10, CurrentStep: 2, TotalSteps: 3,
				OverallStatus: entity.WorkflowStatusRejected,
			}, nil
		}
		f.stepRepo.getCurrentFunc = func(ctx context.Context, workflowID int64, stepOrder int) (*entity.ApprovalStep, error) {
			return &entity.ApprovalStep{
				ID: 102, WorkflowID: 7, ApproverID: approverID, StepOrder: 2,
				Status: entity.StepStatusRejected,
			}, nil
		}
	}

	files := []*entity.AttachmentFile{{FileName: "more-context.pdf", Content: []byte("x")}}

	t.Run("rejecting approver adds files", func(t *testing.T) {
		f := newWorkflowFixture()
		rejected(f, "u2")

		report, err := f.service.AddRejectionAttachments(context.Background(), 10, member("u2"), files)
		if err != nil {
			t.Fatalf("AddRejectionAttachments() unexpected error: %v", err)
		}
		if len(report.Stored) != 1 {
			t.Errorf("stored = %d, want 1", len(report.Stored))
		}
	})

	t.Run("other users are refused", func(t *testing.T) {
		f := newWorkflowFixture()
		rejected(f, "u2")

		_, err := f.service.AddRejectionAttachments(context.Background(), 10, member("u1"), files)
		if !errors.Is(err, apperr.ErrNotAuthorized) {
			t.Errorf("error = %v, want ErrNotAuthorized", err)
		}
	})

	t.Run("no rejected workflow", func(t *testing.T) {
		f := newWorkflowFixture()
		f.workflowRepo.getLatestByDocumentIDFunc = func(ctx context.Context, documentID int64) (*entity.Workflow, error) {
			return &entity.Workflow{ID: 7, OverallStatus: entity.WorkflowStatusApproved}, nil
		}

		_, err := f.service.AddRejectionAttachments(context.Background(), 10, member("u2"), files)
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

// Approving all steps in order produces one approval log entry per step and
// a final approved status.
func TestApprove_FullSequenceProducesOneLogEntryPerStep(t *testing.T) {
	f := newWorkflowFixture()

	wf := &entity.Workflow{
		ID: 7, DocumentID: 10, CurrentStep: 1, TotalSteps: 3,
		OverallStatus: entity.WorkflowStatusPending, RequestedBy: "owner",
	}
	steps := []*entity.ApprovalStep{
		{ID: 101, WorkflowID: 7, ApproverID: "u1", StepOrder: 1, Status: entity.StepStatusPending},
		{ID: 102, WorkflowID: 7, ApproverID: "u2", StepOrder: 2, Status: entity.StepStatusPending},
		{ID: 103, WorkflowID: 7, ApproverID: "u3", StepOrder: 3, Status: entity.StepStatusPending},
	}

	f.workflowRepo.getActiveByDocumentIDFunc = func(ctx context.Context, documentID int64) (*entity.Workflow, error) {
		if !wf.IsActive() {
			return nil, nil
		}
		return wf, nil
	}
	f.workflowRepo.getLatestByDocumentIDFunc = func(ctx context.Context, documentID int64) (*entity.Workflow, error) {
		return wf, nil
	}
	f.workflowRepo.getByIDFunc = func(ctx context.Context, id int64) (*entity.Workflow, error) {
		return wf, nil
	}
	f.stepRepo.getCurrentFunc = func(ctx context.Context, workflowID int64, stepOrder int) (*entity.ApprovalStep, error) {
		return steps[stepOrder-1], nil
	}
	f.stepRepo.decideFunc = func(ctx context.Context, stepID int64, status, comments string) error {
		for _, s := range steps {
			if s.ID == stepID {
				if s.Status != entity.StepStatusPending {
					return apperr.Conflictf("step %d already decided", stepID)
				}
				s.Status = status
			}
		}
		return nil
	}
	f.workflowRepo.advanceCurrentStepFunc = func(ctx context.Context, id int64, fromStep int, status string) error {
		wf.CurrentStep++
		wf.OverallStatus = status
		return nil
	}
	f.workflowRepo.finalizeFunc = func(ctx context.Context, id int64, status string) error {
		wf.OverallStatus = status
		return nil
	}

	for _, user := range []string{"u1", "u2", "u3"} {
		if _, err := f.service.Approve(context.Background(), 10, member(user), fmt.Sprintf("ok by %s", user)); err != nil {
			t.Fatalf("Approve(%s) unexpected error: %v", user, err)
		}
	}

	if wf.OverallStatus != entity.WorkflowStatusApproved {
		t.Errorf("final status = %s, want approved", wf.OverallStatus)
	}

	approvals := 0
	for _, e := range f.activity.recorded {
		if e.Action == entity.ActionApproval {
			approvals++
		}
	}
	if approvals != 3 {
		t.Errorf("approval log entries = %d, want 3", approvals)
	}

	// Approved is terminal: a repeat approval is an invalid-state error,
	// not a missing workflow.
	if _, err := f.service.Approve(context.Background(), 10, member("u3"), ""); !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("post-terminal approve error = %v, want ErrInvalidState", err)
	}
}
