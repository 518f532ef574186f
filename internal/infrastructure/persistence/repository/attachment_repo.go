package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/northdocs/docflow/internal/application/port"
	"github.com/northdocs/docflow/internal/domain/entity"
	"github.com/northdocs/docflow/pkg/database"
)

// AttachmentRepository implements port.AttachmentRepository
type AttachmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAttachmentRepository creates a new attachment repository
func NewAttachmentRepository(db *sql.DB, logger *zap.Logger) port.AttachmentRepository {
	return &AttachmentRepository{
		db:     db,
		logger: logger,
	}
}

const attachmentColumns = `id, step_id, file_name, file_size, file_type,
	storage_path, uploaded_by, uploaded_at`

// Create persists an attachment row
func (r *AttachmentRepository) Create(ctx context.Context, att *entity.RejectionAttachment) error {
	query := `
		INSERT INTO rejection_attachments (
			step_id, file_name, file_size, file_type, storage_path, uploaded_by, uploaded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := database.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		att.StepID,
		att.FileName,
		att.FileSize,
		att.FileType,
		att.StoragePath,
		att.UploadedBy,
		att.UploadedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create attachment", zap.Int64("step_id", att.StepID), zap.Error(err))
		return fmt.Errorf("failed to create attachment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	att.ID = id
	return nil
}

// GetByStepID retrieves all attachments for a step
func (r *AttachmentRepository) GetByStepID(ctx context.Context, stepID int64) ([]*entity.RejectionAttachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM rejection_attachments WHERE step_id = ? ORDER BY uploaded_at ASC`

	rows, err := database.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, stepID)
	if err != nil {
		r.logger.Error("Failed to get attachments", zap.Int64("step_id", stepID), zap.Error(err))
		return nil, fmt.Errorf("failed to get attachments: %w", err)
	}
	defer rows.Close()

	var attachments []*entity.RejectionAttachment
	for rows.Next() {
		att, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, att)
	}
	return attachments, rows.Err()
}

// GetByID retrieves an attachment by ID, nil when absent
func (r *AttachmentRepository) GetByID(ctx context.Context, id int64) (*entity.RejectionAttachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM rejection_attachments WHERE id = ?`

	att, err := scanAttachment(database.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get attachment", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return att, nil
}

func scanAttachment(row rowScanner) (*entity.RejectionAttachment, error) {
	var a entity.RejectionAttachment
	err := row.Scan(
		&a.ID,
		&a.StepID,
		&a.FileName,
		&a.FileSize,
		&a.FileType,
		&a.StoragePath,
		&a.UploadedBy,
		&a.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
