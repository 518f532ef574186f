package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/northdocs/docflow/internal/application/port"
	"github.com/northdocs/docflow/internal/domain/apperr"
	"github.com/northdocs/docflow/internal/domain/entity"
)

// AuditExportService renders a document's activity log as a spreadsheet for
// compliance review.
type AuditExportService interface {
	ExportXLSX(ctx context.Context, documentID int64, caller *entity.Identity) ([]byte, error)
}

type auditExportServiceImpl struct {
	logRepo   port.ActivityLogRepository
	documents port.DocumentRecord
	logger    Logger
}

// NewAuditExportService creates a new AuditExportService
func NewAuditExportService(logRepo port.ActivityLogRepository, documents port.DocumentRecord, logger Logger) AuditExportService {
	return &auditExportServiceImpl{
		logRepo:   logRepo,
		documents: documents,
		logger:    logger,
	}
}

const exportSheet = "Activity Log"

// exportPageSize bounds each repository read while paging the full log
const exportPageSize = 500

// ExportXLSX writes the full activity log for a document, newest first
func (s *auditExportServiceImpl) ExportXLSX(ctx context.Context, documentID int64, caller *entity.Identity) ([]byte, error) {
	doc, err := s.documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperr.NotFoundf("document %d", documentID)
	}
	if doc.OrganizationID != caller.OrganizationID {
		return nil, apperr.NotAuthorizedf("document outside caller organization")
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Error("Failed to close export file", "error", err)
		}
	}()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create export sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	headers := []string{"Timestamp", "User", "Action", "Description", "Old Value", "New Value"}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	row := 2
	for offset := 0; ; offset += exportPageSize {
		entries, err := s.logRepo.ListByDocumentID(ctx, documentID, exportPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to page activity log: %w", err)
		}
		if len(entries) == 0 {
			break
		}

		for _, e := range entries {
			values := []interface{}{
				e.CreatedAt.UTC().Format(time.RFC3339),
				e.UserID,
				e.Action.String(),
				e.Description,
				e.OldValue,
				e.NewValue,
			}
			for col, value := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				if err := f.SetCellValue(exportSheet, cell, value); err != nil {
					return nil, fmt.Errorf("failed to write row %d: %w", row, err)
				}
			}
			row++
		}

		if len(entries) < exportPageSize {
			break
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize export: %w", err)
	}

	s.logger.Info("Activity log exported",
		"document_id", documentID,
		"rows", row-2)
	return buf.Bytes(), nil
}
