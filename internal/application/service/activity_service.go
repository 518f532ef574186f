package service

import (
	"context"
	"time"

	"github.com/northdocs/docflow/internal/application/port"
	"github.com/northdocs/docflow/internal/domain/entity"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ActivityService writes and reads the per-document audit trail. Record is
// fire-and-forget: a log-write failure must never abort the workflow
// transition that triggered it, so failures are logged and swallowed.
type ActivityService interface {
	Record(ctx context.Context, e *entity.ActivityLogEntry)
	List(ctx context.Context, documentID int64, limit, offset int) ([]*entity.ActivityLogEntry, error)
}

type activityServiceImpl struct {
	logRepo port.ActivityLogRepository
	logger  Logger
}

// NewActivityService creates a new ActivityService
func NewActivityService(logRepo port.ActivityLogRepository, logger Logger) ActivityService {
	return &activityServiceImpl{
		logRepo: logRepo,
		logger:  logger,
	}
}

// Record appends one entry, swallowing failures. The write runs on a fresh
// background context so it cannot be rolled back with the caller's
// transaction or cancelled with its request.
func (s *activityServiceImpl) Record(ctx context.Context, e *entity.ActivityLogEntry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.logRepo.Create(writeCtx, e); err != nil {
		s.logger.Error("Activity log write failed",
			"error", err,
			"document_id", e.DocumentID,
			"action", e.Action.String())
		return
	}

	s.logger.Info("Activity recorded",
		"document_id", e.DocumentID,
		"action", e.Action.String())
}

// List retrieves log entries newest-first
func (s *activityServiceImpl) List(ctx context.Context, documentID int64, limit, offset int) ([]*entity.ActivityLogEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.logRepo.ListByDocumentID(ctx, documentID, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list activity log", "error", err, "document_id", documentID)
		return nil, err
	}
	return entries, nil
}
