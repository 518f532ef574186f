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

// DocumentRepository implements port.DocumentRecord. The workflow engine
// only reads document identity/scope and mirrors status; the rest of the
// document lifecycle is owned elsewhere.
type DocumentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *sql.DB, logger *zap.Logger) port.DocumentRecord {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a document by ID, nil when absent
func (r *DocumentRepository) Get(ctx context.Context, documentID int64) (*entity.Document, error) {
	query := `
		SELECT id, project_id, organization_id, title, status, owner_id, created_at, updated_at
		FROM documents
		WHERE id = ?
	`

	var d entity.Document
	err := database.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, documentID).Scan(
		&d.ID,
		&d.ProjectID,
		&d.OrganizationID,
		&d.Title,
		&d.Status,
		&d.OwnerID,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get document", zap.Int64("id", documentID), zap.Error(err))
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &d, nil
}

// SetStatus mirrors a workflow state onto the denormalized document status
func (r *DocumentRepository) SetStatus(ctx context.Context, documentID int64, status string) error {
	query := `UPDATE documents SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	_, err := database.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, status, documentID)
	if err != nil {
		r.logger.Error("Failed to set document status",
			zap.Int64("id", documentID), zap.String("status", status), zap.Error(err))
		return fmt.Errorf("failed to set document status: %w", err)
	}
	return nil
}
