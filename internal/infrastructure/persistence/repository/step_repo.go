package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/northdocs/docflow/internal/application/port"
	"github.com/northdocs/docflow/internal/domain/apperr"
	"github.com/northdocs/docflow/internal/domain/entity"
	"github.com/northdocs/docflow/pkg/database"
)

// StepRepository implements port.StepRepository
type StepRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStepRepository creates a new step repository
func NewStepRepository(db *sql.DB, logger *zap.Logger) port.StepRepository {
	return &StepRepository{
		db:     db,
		logger: logger,
	}
}

const stepColumns = `id, workflow_id, approver_id, step_order, status, comments,
	approved_at, rejected_at, viewed_document, downloaded_document, opened_in_sharepoint`

// CreateBatch persists all steps of a workflow, stepOrder strictly 1..N
func (r *StepRepository) CreateBatch(ctx context.Context, steps []*entity.ApprovalStep) error {
	query := `
		INSERT INTO approval_steps (workflow_id, approver_id, step_order, status, comments)
		VALUES (?, ?, ?, ?, ?)
	`

	exec := database.ExecutorFrom(ctx, r.db)
	for _, step := range steps {
		result, err := exec.ExecContext(ctx, query,
			step.WorkflowID,
			step.ApproverID,
			step.StepOrder,
			step.Status,
			step.Comments,
		)
		if err != nil {
			r.logger.Error("Failed to create step",
				zap.Int64("workflow_id", step.WorkflowID),
				zap.Int("step_order", step.StepOrder),
				zap.Error(err))
			return fmt.Errorf("failed to create step %d: %w", step.StepOrder, err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		step.ID = id
	}

	return nil
}

// GetByWorkflowID retrieves all steps ordered by step_order
func (r *StepRepository) GetByWorkflowID(ctx context.Context, workflowID int64) ([]*entity.ApprovalStep, error) {
	query := `SELECT ` + stepColumns + ` FROM approval_steps WHERE workflow_id = ? ORDER BY step_order ASC`

	rows, err := database.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, workflowID)
	if err != nil {
		r.logger.Error("Failed to get steps", zap.Int64("workflow_id", workflowID), zap.Error(err))
		return nil, fmt.Errorf("failed to get steps: %w", err)
	}
	defer rows.Close()

	var steps []*entity.ApprovalStep
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// GetByID retrieves a step by ID, nil when absent
func (r *StepRepository) GetByID(ctx context.Context, id int64) (*entity.ApprovalStep, error) {
	query := `SELECT ` + stepColumns + ` FROM approval_steps WHERE id = ?`

	step, err := scanStep(database.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get step", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get step: %w", err)
	}
	return step, nil
}

// GetCurrent retrieves the step at the workflow's current pointer
func (r *StepRepository) GetCurrent(ctx context.Context, workflowID int64, stepOrder int) (*entity.ApprovalStep, error) {
	query := `SELECT ` + stepColumns + ` FROM approval_steps WHERE workflow_id = ? AND step_order = ?`

	step, err := scanStep(database.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, workflowID, stepOrder))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get current step",
			zap.Int64("workflow_id", workflowID),
			zap.Int("step_order", stepOrder),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get current step: %w", err)
	}
	return step, nil
}

// Decide records a decision against a step, guarded on status still being
// pending. Zero rows affected means a concurrent decision won the race.
func (r *StepRepository) Decide(ctx context.Context, stepID int64, status, comments string) error {
	var column string
	switch status {
	case entity.StepStatusApproved:
		column = "approved_at"
	case entity.StepStatusRejected:
		column = "rejected_at"
	default:
		return fmt.Errorf("invalid decision status: %s", status)
	}

	query := fmt.Sprintf(`
		UPDATE approval_steps
		SET status = ?, comments = ?, %s = ?
		WHERE id = ? AND status = ?
	`, column)

	result, err := database.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		status, comments, time.Now().UTC(), stepID, entity.StepStatusPending)
	if err != nil {
		r.logger.Error("Failed to record decision", zap.Int64("step_id", stepID), zap.Error(err))
		return fmt.Errorf("failed to record decision: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperr.Conflictf("step %d already decided", stepID)
	}
	return nil
}

// SetEngagement updates the advisory engagement flags
func (r *StepRepository) SetEngagement(ctx context.Context, stepID int64, viewed, downloaded, openedInSharePoint bool) error {
	query := `
		UPDATE approval_steps
		SET viewed_document = viewed_document OR ?,
			downloaded_document = downloaded_document OR ?,
			opened_in_sharepoint = opened_in_sharepoint OR ?
		WHERE id = ?
	`

	_, err := database.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		viewed, downloaded, openedInSharePoint, stepID)
	if err != nil {
		r.logger.Error("Failed to set engagement flags", zap.Int64("step_id", stepID), zap.Error(err))
		return fmt.Errorf("failed to set engagement flags: %w", err)
	}
	return nil
}

func scanStep(row rowScanner) (*entity.ApprovalStep, error) {
	var s entity.ApprovalStep
	var approvedAt, rejectedAt sql.NullTime

	err := row.Scan(
		&s.ID,
		&s.WorkflowID,
		&s.ApproverID,
		&s.StepOrder,
		&s.Status,
		&s.Comments,
		&approvedAt,
		&rejectedAt,
		&s.ViewedDocument,
		&s.DownloadedDocument,
		&s.OpenedInSharePoint,
	)
	if err != nil {
		return nil, err
	}

	if approvedAt.Valid {
		s.ApprovedAt = &approvedAt.Time
	}
	if rejectedAt.Valid {
		s.RejectedAt = &rejectedAt.Time
	}
	return &s, nil
}
