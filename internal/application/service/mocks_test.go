package service

import (
	"context"
	"time"

	"github.com/northdocs/docflow/internal/domain/entity"
)

// Hand-rolled mocks with overridable function fields. Nil fields fall back
// to permissive defaults so tests only wire what they assert on.

type mockWorkflowRepo struct {
	createFunc                 func(ctx context.Context, w *entity.Workflow) error
	getByIDFunc                func(ctx context.Context, id int64) (*entity.Workflow, error)
	getActiveByDocumentIDFunc  func(ctx context.Context, documentID int64) (*entity.Workflow, error)
	getLatestByDocumentIDFunc  func(ctx context.Context, documentID int64) (*entity.Workflow, error)
	advanceCurrentStepFunc     func(ctx context.Context, id int64, fromStep int, status string) error
	finalizeFunc               func(ctx context.Context, id int64, status string) error
	deleteFunc                 func(ctx context.Context, id int64) error
	listPendingForApproverFunc func(ctx context.Context, approverID, organizationID string) ([]*entity.Workflow, error)
}

func (m *mockWorkflowRepo) Create(ctx context.Context, w *entity.Workflow) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, w)
	}
	w.ID = 1
	return nil
}

func (m *mockWorkflowRepo) GetByID(ctx context.Context, id int64) (*entity.Workflow, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.Workflow{ID: id, DocumentID: 10, CurrentStep: 1, TotalSteps: 1, OverallStatus: entity.WorkflowStatusPending}, nil
}

func (m *mockWorkflowRepo) GetActiveByDocumentID(ctx context.Context, documentID int64) (*entity.Workflow, error) {
	if m.getActiveByDocumentIDFunc != nil {
		return m.getActiveByDocumentIDFunc(ctx, documentID)
	}
	return nil, nil
}

func (m *mockWorkflowRepo) GetLatestByDocumentID(ctx context.Context, documentID int64) (*entity.Workflow, error) {
	if m.getLatestByDocumentIDFunc != nil {
		return m.getLatestByDocumentIDFunc(ctx, documentID)
	}
	return nil, nil
}

func (m *mockWorkflowRepo) AdvanceCurrentStep(ctx context.Context, id int64, fromStep int, status string) error {
	if m.advanceCurrentStepFunc != nil {
		return m.advanceCurrentStepFunc(ctx, id, fromStep, status)
	}
	return nil
}

func (m *mockWorkflowRepo) Finalize(ctx context.Context, id int64, status string) error {
	if m.finalizeFunc != nil {
		return m.finalizeFunc(ctx, id, status)
	}
	return nil
}

func (m *mockWorkflowRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockWorkflowRepo) ListPendingForApprover(ctx context.Context, approverID, organizationID string) ([]*entity.Workflow, error) {
	if m.listPendingForApproverFunc != nil {
		return m.listPendingForApproverFunc(ctx, approverID, organizationID)
	}
	return []*entity.Workflow{}, nil
}

type mockStepRepo struct {
	createBatchFunc     func(ctx context.Context, steps []*entity.ApprovalStep) error
	getByIDFunc         func(ctx context.Context, id int64) (*entity.ApprovalStep, error)
	getByWorkflowIDFunc func(ctx context.Context, workflowID int64) ([]*entity.ApprovalStep, error)
	getCurrentFunc      func(ctx context.Context, workflowID int64, stepOrder int) (*entity.ApprovalStep, error)
	decideFunc          func(ctx context.Context, stepID int64, status, comments string) error
	setEngagementFunc   func(ctx context.Context, stepID int64, viewed, downloaded, openedInSharePoint bool) error
}

func (m *mockStepRepo) CreateBatch(ctx context.Context, steps []*entity.ApprovalStep) error {
	if m.createBatchFunc != nil {
		return m.createBatchFunc(ctx, steps)
	}
	for i, step := range steps {
		step.ID = int64(i + 1)
	}
	return nil
}

func (m *mockStepRepo) GetByID(ctx context.Context, id int64) (*entity.ApprovalStep, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockStepRepo) GetByWorkflowID(ctx context.Context, workflowID int64) ([]*entity.ApprovalStep, error) {
	if m.getByWorkflowIDFunc != nil {
		return m.getByWorkflowIDFunc(ctx, workflowID)
	}
	return []*entity.ApprovalStep{}, nil
}

func (m *mockStepRepo) GetCurrent(ctx context.Context, workflowID int64, stepOrder int) (*entity.ApprovalStep, error) {
	if m.getCurrentFunc != nil {
		return m.getCurrentFunc(ctx, workflowID, stepOrder)
	}
	return nil, nil
}

func (m *mockStepRepo) Decide(ctx context.Context, stepID int64, status, comments string) error {
	if m.decideFunc != nil {
		return m.decideFunc(ctx, stepID, status, comments)
	}
	return nil
}

func (m *mockStepRepo) SetEngagement(ctx context.Context, stepID int64, viewed, downloaded, openedInSharePoint bool) error {
	if m.setEngagementFunc != nil {
		return m.setEngagementFunc(ctx, stepID, viewed, downloaded, openedInSharePoint)
	}
	return nil
}

type mockDocumentRecord struct {
	getFunc       func(ctx context.Context, documentID int64) (*entity.Document, error)
	setStatusFunc func(ctx context.Context, documentID int64, status string) error

	statusWrites []string
}

func (m *mockDocumentRecord) Get(ctx context.Context, documentID int64) (*entity.Document, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, documentID)
	}
	return &entity.Document{
		ID:             documentID,
		OrganizationID: "org1",
		Status:         entity.DocumentStatusDraft,
		OwnerID:        "owner",
	}, nil
}

func (m *mockDocumentRecord) SetStatus(ctx context.Context, documentID int64, status string) error {
	m.statusWrites = append(m.statusWrites, status)
	if m.setStatusFunc != nil {
		return m.setStatusFunc(ctx, documentID, status)
	}
	return nil
}

type mockAttachmentService struct {
	storeBatchFunc func(ctx context.Context, documentID, stepID int64, uploadedBy string, files []*entity.AttachmentFile) *entity.AttachmentUploadReport
}

func (m *mockAttachmentService) StoreBatch(ctx context.Context, documentID, stepID int64, uploadedBy string, files []*entity.AttachmentFile) *entity.AttachmentUploadReport {
	if m.storeBatchFunc != nil {
		return m.storeBatchFunc(ctx, documentID, stepID, uploadedBy, files)
	}
	report := &entity.AttachmentUploadReport{}
	for _, f := range files {
		report.Stored = append(report.Stored, &entity.RejectionAttachment{
			StepID:   stepID,
			FileName: f.FileName,
			FileSize: int64(len(f.Content)),
		})
	}
	return report
}

func (m *mockAttachmentService) ListByStep(ctx context.Context, stepID int64) ([]*entity.RejectionAttachment, error) {
	return nil, nil
}

func (m *mockAttachmentService) DownloadURL(ctx context.Context, attachmentID int64, caller *entity.Identity) (string, error) {
	return "", nil
}

func (m *mockAttachmentService) ReadByToken(ctx context.Context, token string) (*entity.AttachmentFile, error) {
	return nil, nil
}

type mockActivityService struct {
	recorded []*entity.ActivityLogEntry
	listFunc func(ctx context.Context, documentID int64, limit, offset int) ([]*entity.ActivityLogEntry, error)
}

func (m *mockActivityService) Record(ctx context.Context, e *entity.ActivityLogEntry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	m.recorded = append(m.recorded, e)
}

func (m *mockActivityService) List(ctx context.Context, documentID int64, limit, offset int) ([]*entity.ActivityLogEntry, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, documentID, limit, offset)
	}
	return []*entity.ActivityLogEntry{}, nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
