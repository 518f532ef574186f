package service

import (
	"context"
	"mime"
	"path/filepath"
	"time"

	"github.com/northdocs/docflow/internal/application/port"
	"github.com/northdocs/docflow/internal/domain/apperr"
	"github.com/northdocs/docflow/internal/domain/entity"
)

// AttachmentService stores rejection-supporting files and issues signed
// download URLs. Multi-file stores are best-effort: each failed file is
// skipped and reported, never fatal to the owning transition.
type AttachmentService interface {
	StoreBatch(ctx context.Context, documentID, stepID int64, uploadedBy string, files []*entity.AttachmentFile) *entity.AttachmentUploadReport
	ListByStep(ctx context.Context, stepID int64) ([]*entity.RejectionAttachment, error)
	DownloadURL(ctx context.Context, attachmentID int64, caller *entity.Identity) (string, error)
	ReadByToken(ctx context.Context, token string) (*entity.AttachmentFile, error)
}

type attachmentServiceImpl struct {
	attachmentRepo port.AttachmentRepository
	stepRepo       port.StepRepository
	workflowRepo   port.WorkflowRepository
	documents      port.DocumentRecord
	blobs          blobStore
	storeTimeout   time.Duration
	downloadTTL    time.Duration
	logger         Logger
}

// blobStore extends port.BlobStore with token verification for downloads
type blobStore interface {
	port.BlobStore
	VerifyToken(token string) (string, error)
}

// NewAttachmentService creates a new AttachmentService
func NewAttachmentService(
	attachmentRepo port.AttachmentRepository,
	stepRepo port.StepRepository,
	workflowRepo port.WorkflowRepository,
	documents port.DocumentRecord,
	blobs blobStore,
	storeTimeout time.Duration,
	downloadTTL time.Duration,
	logger Logger,
) AttachmentService {
	if storeTimeout <= 0 {
		storeTimeout = 10 * time.Second
	}
	return &attachmentServiceImpl{
		attachmentRepo: attachmentRepo,
		stepRepo:       stepRepo,
		workflowRepo:   workflowRepo,
		documents:      documents,
		blobs:          blobs,
		storeTimeout:   storeTimeout,
		downloadTTL:    downloadTTL,
		logger:         logger,
	}
}

// StoreBatch uploads each file and persists a row per success. Failures are
// logged and listed as skipped.
func (s *attachmentServiceImpl) StoreBatch(ctx context.Context, documentID, stepID int64, uploadedBy string, files []*entity.AttachmentFile) *entity.AttachmentUploadReport {
	report := &entity.AttachmentUploadReport{}

	for _, file := range files {
		obj, err := s.storeOne(ctx, documentID, stepID, file)
		if err != nil {
			s.logger.Error("Attachment upload skipped",
				"error", err,
				"document_id", documentID,
				"step_id", stepID,
				"file_name", file.FileName)
			report.Skipped = append(report.Skipped, file.FileName)
			continue
		}

		att := &entity.RejectionAttachment{
			StepID:      stepID,
			FileName:    file.FileName,
			FileSize:    obj.FileSize,
			FileType:    fileType(file),
			StoragePath: obj.StoragePath,
			UploadedBy:  uploadedBy,
			UploadedAt:  time.Now().UTC(),
		}

		if err := s.attachmentRepo.Create(ctx, att); err != nil {
			s.logger.Error("Attachment row skipped",
				"error", err,
				"document_id", documentID,
				"step_id", stepID,
				"file_name", file.FileName)
			report.Skipped = append(report.Skipped, file.FileName)
			continue
		}

		report.Stored = append(report.Stored, att)
	}

	return report
}

func (s *attachmentServiceImpl) storeOne(ctx context.Context, documentID, stepID int64, file *entity.AttachmentFile) (*port.StoredObject, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.blobs.Store(storeCtx, documentID, stepID, file.FileName, file.Content)
}

// ListByStep retrieves attachment rows for a step
func (s *attachmentServiceImpl) ListByStep(ctx context.Context, stepID int64) ([]*entity.RejectionAttachment, error) {
	return s.attachmentRepo.GetByStepID(ctx, stepID)
}

// DownloadURL issues a signed token for an attachment after checking the
// caller belongs to the owning document's organization.
func (s *attachmentServiceImpl) DownloadURL(ctx context.Context, attachmentID int64, caller *entity.Identity) (string, error) {
	att, err := s.attachmentRepo.GetByID(ctx, attachmentID)
	if err != nil {
		return "", err
	}
	if att == nil {
		return "", apperr.NotFoundf("attachment %d", attachmentID)
	}

	step, err := s.stepRepo.GetByID(ctx, att.StepID)
	if err != nil {
		return "", err
	}
	if step == nil {
		return "", apperr.NotFoundf("step %d", att.StepID)
	}

	wf, err := s.workflowRepo.GetByID(ctx, step.WorkflowID)
	if err != nil {
		return "", err
	}
	if wf == nil {
		return "", apperr.NotFoundf("workflow %d", step.WorkflowID)
	}

	doc, err := s.documents.Get(ctx, wf.DocumentID)
	if err != nil {
		return "", err
	}
	if doc == nil || doc.OrganizationID != caller.OrganizationID {
		return "", apperr.NotAuthorizedf("attachment outside caller organization")
	}

	return s.blobs.SignedURL(att.StoragePath, s.downloadTTL)
}

// ReadByToken verifies a download token and returns the blob content
func (s *attachmentServiceImpl) ReadByToken(ctx context.Context, token string) (*entity.AttachmentFile, error) {
	storagePath, err := s.blobs.VerifyToken(token)
	if err != nil {
		return nil, err
	}

	content, err := s.blobs.Read(ctx, storagePath)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(storagePath)
	return &entity.AttachmentFile{
		FileName: name,
		MimeType: mimeTypeFor(name),
		Content:  content,
	}, nil
}

func fileType(file *entity.AttachmentFile) string {
	if file.MimeType != "" {
		return file.MimeType
	}
	return mimeTypeFor(file.FileName)
}

func mimeTypeFor(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
