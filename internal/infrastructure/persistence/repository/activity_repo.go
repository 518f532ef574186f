package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/northdocs/docflow/internal/application/port"
	"github.com/northdocs/docflow/internal/domain/apperr"
	"github.com/northdocs/docflow/internal/domain/entity"
	"github.com/northdocs/docflow/pkg/database"
)

// ActivityLogRepository implements port.ActivityLogRepository
type ActivityLogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewActivityLogRepository creates a new activity log repository
func NewActivityLogRepository(db *sql.DB, logger *zap.Logger) port.ActivityLogRepository {
	return &ActivityLogRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends one log entry. The table has no update path. Failures are
// wrapped in apperr.ErrPersistence so the fire-and-forget caller can log
// them as audit-trail losses.
func (r *ActivityLogRepository) Create(ctx context.Context, e *entity.ActivityLogEntry) error {
	metadata := "{}"
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("%w: marshal metadata: %v", apperr.ErrPersistence, err)
		}
		metadata = string(raw)
	}

	query := `
		INSERT INTO activity_logs (
			document_id, user_id, action, description, old_value, new_value, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := database.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		e.DocumentID,
		e.UserID,
		e.Action.String(),
		e.Description,
		e.OldValue,
		e.NewValue,
		metadata,
		e.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create activity log entry",
			zap.Int64("document_id", e.DocumentID), zap.Error(err))
		return fmt.Errorf("%w: insert activity log entry: %v", apperr.ErrPersistence, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: last insert id: %v", apperr.ErrPersistence, err)
	}

	e.ID = id
	return nil
}

// ListByDocumentID retrieves log entries newest-first
func (r *ActivityLogRepository) ListByDocumentID(ctx context.Context, documentID int64, limit, offset int) ([]*entity.ActivityLogEntry, error) {
	query := `
		SELECT id, document_id, user_id, action, description, old_value, new_value, metadata, created_at
		FROM activity_logs
		WHERE document_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := database.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, documentID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list activity log",
			zap.Int64("document_id", documentID), zap.Error(err))
		return nil, fmt.Errorf("failed to list activity log: %w", err)
	}
	defer rows.Close()

	var entries []*entity.ActivityLogEntry
	for rows.Next() {
		var e entity.ActivityLogEntry
		var action, metadata string

		err := rows.Scan(
			&e.ID,
			&e.DocumentID,
			&e.UserID,
			&action,
			&e.Description,
			&e.OldValue,
			&e.NewValue,
			&metadata,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity log entry: %w", err)
		}

		e.Action = entity.Action(action)
		if metadata != "" && metadata != "{}" {
			if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
				r.logger.Error("Failed to unmarshal log metadata",
					zap.Int64("id", e.ID), zap.Error(err))
			}
		}

		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
