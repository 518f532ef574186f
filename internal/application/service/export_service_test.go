package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/northdocs/docflow/internal/domain/apperr"
	"github.com/northdocs/docflow/internal/domain/entity"
)

func TestExportXLSX(t *testing.T) {
	t.Run("writes header and one row per entry", func(t *testing.T) {
		logRepo := &mockActivityLogRepo{
			listByDocumentIDFunc: func(ctx context.Context, documentID int64, limit, offset int) ([]*entity.ActivityLogEntry, error) {
				if offset > 0 {
					return []*entity.ActivityLogEntry{}, nil
				}
				return []*entity.ActivityLogEntry{
					{
						DocumentID:  documentID,
						UserID:      "u2",
						Action:      entity.ActionRejected,
						Description: "Rejected at step 2 of 3",
						OldValue:    entity.WorkflowStatusUnderReview,
						NewValue:    entity.WorkflowStatusRejected,
						CreatedAt:   time.Date(2026, 2, 3, 10, 30, 0, 0, time.UTC),
					},
					{
						DocumentID:  documentID,
						UserID:      "owner",
						Action:      entity.ActionStatusChange,
						Description: "Approval requested",
						CreatedAt:   time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
					},
				}, nil
			},
		}
		svc := NewAuditExportService(logRepo, &mockDocumentRecord{}, &mockLogger{})

		data, err := svc.ExportXLSX(context.Background(), 10, member("u1"))
		if err != nil {
			t.Fatalf("ExportXLSX() unexpected error: %v", err)
		}

		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("exported bytes are not a readable workbook: %v", err)
		}
		defer f.Close()

		rows, err := f.GetRows("Activity Log")
		if err != nil {
			t.Fatalf("GetRows() error: %v", err)
		}
		if len(rows) != 3 {
			t.Fatalf("got %d rows, want header plus 2 entries", len(rows))
		}
		if rows[0][0] != "Timestamp" || rows[0][2] != "Action" {
			t.Errorf("header row = %v", rows[0])
		}
		if rows[1][1] != "u2" || rows[1][2] != entity.ActionRejected.String() {
			t.Errorf("first entry row = %v", rows[1])
		}
		if rows[1][0] != "2026-02-03T10:30:00Z" {
			t.Errorf("timestamp = %s, want RFC3339 UTC", rows[1][0])
		}
	})

	t.Run("empty log exports header only", func(t *testing.T) {
		svc := NewAuditExportService(&mockActivityLogRepo{}, &mockDocumentRecord{}, &mockLogger{})

		data, err := svc.ExportXLSX(context.Background(), 10, member("u1"))
		if err != nil {
			t.Fatalf("ExportXLSX() unexpected error: %v", err)
		}

		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("exported bytes are not a readable workbook: %v", err)
		}
		defer f.Close()

		rows, err := f.GetRows("Activity Log")
		if err != nil {
			t.Fatalf("GetRows() error: %v", err)
		}
		if len(rows) != 1 {
			t.Errorf("got %d rows, want header only", len(rows))
		}
	})

	t.Run("foreign organization is refused", func(t *testing.T) {
		documents := &mockDocumentRecord{
			getFunc: func(ctx context.Context, documentID int64) (*entity.Document, error) {
				return &entity.Document{ID: documentID, OrganizationID: "org2"}, nil
			},
		}
		svc := NewAuditExportService(&mockActivityLogRepo{}, documents, &mockLogger{})

		_, err := svc.ExportXLSX(context.Background(), 10, member("u1"))
		if !errors.Is(err, apperr.ErrNotAuthorized) {
			t.Errorf("error = %v, want ErrNotAuthorized", err)
		}
	})

	t.Run("repository failure aborts the export", func(t *testing.T) {
		logRepo := &mockActivityLogRepo{
			listByDocumentIDFunc: func(ctx context.Context, documentID int64, limit, offset int) ([]*entity.ActivityLogEntry, error) {
				return nil, errors.New("db gone")
			},
		}
		svc := NewAuditExportService(logRepo, &mockDocumentRecord{}, &mockLogger{})

		if _, err := svc.ExportXLSX(context.Background(), 10, member("u1")); err == nil {
			t.Error("ExportXLSX() expected error, got nil")
		}
	})
}
