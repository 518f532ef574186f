package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/northdocs/docflow/internal/domain/entity"
	"github.com/northdocs/docflow/pkg/database"
)

// setupTestDB opens a throwaway database file and applies the real
// migrations so the tests run against the shipped schema.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    2,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}, logger)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations("../../../../migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	return db
}

func insertDocument(t *testing.T, db *database.DB, organizationID string) int64 {
	t.Helper()

	result, err := db.Exec(`
		INSERT INTO documents (project_id, organization_id, title, status, owner_id)
		VALUES (1, ?, 'Structural drawings rev B', 'draft', 'owner')
	`, organizationID)
	if err != nil {
		t.Fatalf("insert document: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func newWorkflow(documentID int64, totalSteps int) *entity.Workflow {
	return &entity.Workflow{
		DocumentID:    documentID,
		CurrentStep:   1,
		TotalSteps:    totalSteps,
		OverallStatus: entity.WorkflowStatusPending,
		RequestedBy:   "owner",
		RequestedAt:   time.Now().UTC(),
	}
}

// seedWorkflow creates a workflow with one pending step per approver
func seedWorkflow(t *testing.T, db *database.DB, documentID int64, approvers ...string) *entity.Workflow {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	wf := newWorkflow(documentID, len(approvers))
	if err := NewWorkflowRepository(db.DB, logger).Create(ctx, wf); err != nil {
		t.Fatalf("create workflow: %v", err)
	}

	steps := make([]*entity.ApprovalStep, 0, len(approvers))
	for i, approver := range approvers {
		steps = append(steps, &entity.ApprovalStep{
			WorkflowID: wf.ID,
			ApproverID: approver,
			StepOrder:  i + 1,
			Status:     entity.StepStatusPending,
		})
	}
	if err := NewStepRepository(db.DB, logger).CreateBatch(ctx, steps); err != nil {
		t.Fatalf("create steps: %v", err)
	}
	wf.Steps = steps
	return wf
}

func countRows(t *testing.T, db *database.DB, query string, args ...interface{}) int {
	t.Helper()
	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return n
}
