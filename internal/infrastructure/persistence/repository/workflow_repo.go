package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/northdocs/docflow/internal/application/port"
	"github.com/northdocs/docflow/internal/domain/apperr"
	"github.com/northdocs/docflow/internal/domain/entity"
	"github.com/northdocs/docflow/pkg/database"
)

// WorkflowRepository implements port.WorkflowRepository
type WorkflowRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWorkflowRepository creates a new workflow repository
func NewWorkflowRepository(db *sql.DB, logger *zap.Logger) port.WorkflowRepository {
	return &WorkflowRepository{
		db:     db,
		logger: logger,
	}
}

const workflowColumns = `id, document_id, current_step, total_steps, overall_status,
	requested_by, requested_at, completed_at, comments`

// Create persists a workflow row. The partial unique index on active
// workflows turns a duplicate into apperr.ErrConflict.
func (r *WorkflowRepository) Create(ctx context.Context, w *entity.Workflow) error {
	query := `
		INSERT INTO approval_workflows (
			document_id, current_step, total_steps, overall_status,
			requested_by, requested_at, comments
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := database.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		w.DocumentID,
		w.CurrentStep,
		w.TotalSteps,
		w.OverallStatus,
		w.RequestedBy,
		w.RequestedAt,
		w.Comments,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflictf("document %d already has an active workflow", w.DocumentID)
		}
		r.logger.Error("Failed to create workflow", zap.Error(err))
		return fmt.Errorf("failed to create workflow: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	w.ID = id
	return nil
}

// GetByID retrieves a workflow by ID
func (r *WorkflowRepository) GetByID(ctx context.Context, id int64) (*entity.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM approval_workflows WHERE id = ?`
	return r.scanOne(database.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
}

// GetActiveByDocumentID retrieves the pending/under-review workflow for a document
func (r *WorkflowRepository) GetActiveByDocumentID(ctx context.Context, documentID int64) (*entity.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM approval_workflows
		WHERE document_id = ? AND overall_status IN (?, ?)
	`
	return r.scanOne(database.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query,
		documentID, entity.WorkflowStatusPending, entity.WorkflowStatusUnderReview))
}

// GetLatestByDocumentID retrieves the most recently requested workflow for a document
func (r *WorkflowRepository) GetLatestByDocumentID(ctx context.Context, documentID int64) (*entity.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM approval_workflows
		WHERE document_id = ?
		ORDER BY requested_at DESC, id DESC
		LIMIT 1
	`
	return r.scanOne(database.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, documentID))
}

// AdvanceCurrentStep moves the pointer forward by one, guarded on the
// expected current value so a concurrent decision cannot double-advance.
func (r *WorkflowRepository) AdvanceCurrentStep(ctx context.Context, id int64, fromStep int, status string) error {
	query := `
		UPDATE approval_workflows
		SET current_step = current_step + 1, overall_status = ?
		WHERE id = ? AND current_step = ? AND overall_status IN (?, ?)
	`

	result, err := database.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		status, id, fromStep, entity.WorkflowStatusPending, entity.WorkflowStatusUnderReview)
	if err != nil {
		r.logger.Error("Failed to advance workflow", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to advance workflow: %w", err)
	}

	return r.requireOneRow(result, id, "advance")
}

// Finalize sets a terminal overall status, guarded on the workflow still being active
func (r *WorkflowRepository) Finalize(ctx context.Context, id int64, status string) error {
	query := `
		UPDATE approval_workflows
		SET overall_status = ?, completed_at = ?
		WHERE id = ? AND overall_status IN (?, ?)
	`

	result, err := database.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		status, time.Now().UTC(), id, entity.WorkflowStatusPending, entity.WorkflowStatusUnderReview)
	if err != nil {
		r.logger.Error("Failed to finalize workflow", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to finalize workflow: %w", err)
	}

	return r.requireOneRow(result, id, "finalize")
}

// Delete hard-deletes the workflow; foreign keys cascade to steps and attachments
func (r *WorkflowRepository) Delete(ctx context.Context, id int64) error {
	result, err := database.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		`DELETE FROM approval_workflows WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete workflow", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return r.requireOneRow(result, id, "delete")
}

// ListPendingForApprover returns active workflows whose current step awaits
// the approver, scoped to the document's organization.
func (r *WorkflowRepository) ListPendingForApprover(ctx context.Context, approverID, organizationID string) ([]*entity.Workflow, error) {
	query := `
		SELECT w.id, w.document_id, w.current_step, w.total_steps, w.overall_status,
			w.requested_by, w.requested_at, w.completed_at, w.comments
		FROM approval_workflows w
		JOIN approval_steps s ON s.workflow_id = w.id AND s.step_order = w.current_step
		JOIN documents d ON d.id = w.document_id
		WHERE w.overall_status IN (?, ?)
			AND s.approver_id = ?
			AND s.status = ?
			AND d.organization_id = ?
		ORDER BY w.requested_at ASC
	`

	rows, err := database.ExecutorFrom(ctx, r.db).QueryContext(ctx, query,
		entity.WorkflowStatusPending, entity.WorkflowStatusUnderReview,
		approverID, entity.StepStatusPending, organizationID)
	if err != nil {
		r.logger.Error("Failed to list pending workflows",
			zap.String("approver_id", approverID), zap.Error(err))
		return nil, fmt.Errorf("failed to list pending workflows: %w", err)
	}
	defer rows.Close()

	var workflows []*entity.Workflow
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, w)
	}
	return workflows, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWorkflow(row rowScanner) (*entity.Workflow, error) {
	var w entity.Workflow
	var completedAt sql.NullTime

	err := row.Scan(
		&w.ID,
		&w.DocumentID,
		&w.CurrentStep,
		&w.TotalSteps,
		&w.OverallStatus,
		&w.RequestedBy,
		&w.RequestedAt,
		&completedAt,
		&w.Comments,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		w.CompletedAt = &completedAt.Time
	}
	return &w, nil
}

func (r *WorkflowRepository) scanOne(row *sql.Row) (*entity.Workflow, error) {
	w, err := scanWorkflow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to scan workflow", zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	return w, nil
}

// requireOneRow maps a zero-row guarded update to a conflict: the workflow
// was concurrently finalized, advanced, or deleted.
func (r *WorkflowRepository) requireOneRow(result sql.Result, id int64, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperr.Conflictf("workflow %d: %s lost to a concurrent update", id, op)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
