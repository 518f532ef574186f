package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/northdocs/docflow/internal/application/service"
	"github.com/northdocs/docflow/internal/domain/apperr"
	"github.com/northdocs/docflow/internal/domain/entity"
)

// maxAttachmentBytes caps a single uploaded rejection attachment
const maxAttachmentBytes = 25 << 20

// Handlers contains all HTTP request handlers
type Handlers struct {
	workflowService   service.WorkflowService
	activityService   service.ActivityService
	attachmentService service.AttachmentService
	exportService     service.AuditExportService
	logger            Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	workflowService service.WorkflowService,
	activityService service.ActivityService,
	attachmentService service.AttachmentService,
	exportService service.AuditExportService,
	logger Logger,
) *Handlers {
	return &Handlers{
		workflowService:   workflowService,
		activityService:   activityService,
		attachmentService: attachmentService,
		exportService:     exportService,
		logger:            logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateWorkflowRequest is the body for POST /documents/:id/approvals
type CreateWorkflowRequest struct {
	ApproverIDs []string `json:"approver_ids" binding:"required"`
	Comments    string   `json:"comments"`
}

// DecisionRequest is the body for approve requests
type DecisionRequest struct {
	Comments string `json:"comments"`
}

// EngagementRequest is the body for engagement flag updates
type EngagementRequest struct {
	ViewedDocument     bool `json:"viewed_document"`
	DownloadedDocument bool `json:"downloaded_document"`
	OpenedInSharePoint bool `json:"opened_in_sharepoint"`
}

// RejectResponse pairs the finalized workflow with the attachment report
type RejectResponse struct {
	Workflow    *entity.Workflow               `json:"workflow"`
	Attachments *entity.AttachmentUploadReport `json:"attachments"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// CreateWorkflow handles POST /api/v1/documents/:id/approvals
func (h *Handlers) CreateWorkflow(c *gin.Context) {
	documentID, ok := documentIDParam(c)
	if !ok {
		return
	}

	var req CreateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validationf("invalid request body: %v", err))
		return
	}

	wf, err := h.workflowService.CreateWorkflow(c.Request.Context(), documentID, req.ApproverIDs, identityFrom(c), req.Comments)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: wf})
}

// GetActiveWorkflow handles GET /api/v1/documents/:id/approvals
func (h *Handlers) GetActiveWorkflow(c *gin.Context) {
	documentID, ok := documentIDParam(c)
	if !ok {
		return
	}

	wf, err := h.workflowService.GetActive(c.Request.Context(), documentID, identityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: wf})
}

// Approve handles POST /api/v1/documents/:id/approvals/approve
func (h *Handlers) Approve(c *gin.Context) {
	documentID, ok := documentIDParam(c)
	if !ok {
		return
	}

	var req DecisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.respondError(c, apperr.Validationf("invalid request body: %v", err))
			return
		}
	}

	wf, err := h.workflowService.Approve(c.Request.Context(), documentID, identityFrom(c), req.Comments)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: wf})
}

// Reject handles POST /api/v1/documents/:id/approvals/reject. The body is
// multipart: a required comments field plus zero or more files.
func (h *Handlers) Reject(c *gin.Context) {
	documentID, ok := documentIDParam(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		h.respondError(c, apperr.Validationf("expected multipart form: %v", err))
		return
	}

	comments := c.PostForm("comments")
	files, err := readMultipartFiles(form.File["files"])
	if err != nil {
		h.respondError(c, err)
		return
	}

	wf, report, err := h.workflowService.Reject(c.Request.Context(), documentID, identityFrom(c), comments, files)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: RejectResponse{Workflow: wf, Attachments: report}})
}

// Cancel handles POST /api/v1/documents/:id/approvals/cancel
func (h *Handlers) Cancel(c *gin.Context) {
	documentID, ok := documentIDParam(c)
	if !ok {
		return
	}

	if err := h.workflowService.Cancel(c.Request.Context(), documentID, identityFrom(c)); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// MarkEngagement handles POST /api/v1/documents/:id/approvals/engagement
func (h *Handlers) MarkEngagement(c *gin.Context) {
	documentID, ok := documentIDParam(c)
	if !ok {
		return
	}

	var req EngagementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validationf("invalid request body: %v", err))
		return
	}

	err := h.workflowService.MarkEngagement(c.Request.Context(), documentID, identityFrom(c),
		req.ViewedDocument, req.DownloadedDocument, req.OpenedInSharePoint)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AddRejectionAttachments handles POST /api/v1/documents/:id/approvals/attachments
func (h *Handlers) AddRejectionAttachments(c *gin.Context) {
	documentID, ok := documentIDParam(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		h.respondError(c, apperr.Validationf("expected multipart form: %v", err))
		return
	}

	files, err := readMultipartFiles(form.File["files"])
	if err != nil {
		h.respondError(c, err)
		return
	}

	report, err := h.workflowService.AddRejectionAttachments(c.Request.Context(), documentID, identityFrom(c), files)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: report})
}

// ListPendingApprovals handles GET /api/v1/approvals
func (h *Handlers) ListPendingApprovals(c *gin.Context) {
	workflows, err := h.workflowService.ListPendingForApprover(c.Request.Context(), identityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: workflows})
}

// ListActivityLog handles GET /api/v1/documents/:id/logs
func (h *Handlers) ListActivityLog(c *gin.Context) {
	documentID, ok := documentIDParam(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.activityService.List(c.Request.Context(), documentID, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: entries})
}

// ExportActivityLog handles GET /api/v1/documents/:id/logs/export
func (h *Handlers) ExportActivityLog(c *gin.Context) {
	documentID, ok := documentIDParam(c)
	if !ok {
		return
	}

	data, err := h.exportService.ExportXLSX(c.Request.Context(), documentID, identityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	fileName := fmt.Sprintf("activity-log-%d.xlsx", documentID)
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// AttachmentDownloadURL handles GET /api/v1/attachments/:id/url
func (h *Handlers) AttachmentDownloadURL(c *gin.Context) {
	attachmentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.respondError(c, apperr.Validationf("invalid attachment id"))
		return
	}

	token, err := h.attachmentService.DownloadURL(c.Request.Context(), attachmentID, identityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{
		"url": "/api/v1/attachments/download?token=" + token,
	}})
}

// DownloadAttachment handles GET /api/v1/attachments/download. The signed
// token in the query is the sole credential.
func (h *Handlers) DownloadAttachment(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		h.respondError(c, apperr.Validationf("missing token"))
		return
	}

	file, err := h.attachmentService.ReadByToken(c.Request.Context(), token)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.FileName+`"`)
	c.Data(http.StatusOK, file.MimeType, file.Content)
}

// respondError maps application errors to HTTP status codes
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, apperr.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperr.ErrNotAuthorized):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, apperr.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrInvalidState):
		status, message = http.StatusConflict, err.Error()
	default:
		h.logger.Error("Unhandled request error", "error", err, "path", c.Request.URL.Path)
	}

	c.JSON(status, Response{Success: false, Error: message})
}

// documentIDParam parses the :id path segment, responding 400 on failure
func documentIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid document id"})
		return 0, false
	}
	return id, true
}

func readMultipartFiles(headers []*multipart.FileHeader) ([]*entity.AttachmentFile, error) {
	files := make([]*entity.AttachmentFile, 0, len(headers))
	for _, header := range headers {
		if header.Size > maxAttachmentBytes {
			return nil, apperr.Validationf("file %s exceeds size limit", header.Filename)
		}

		f, err := header.Open()
		if err != nil {
			return nil, apperr.Validationf("unreadable file %s: %v", header.Filename, err)
		}

		content, err := io.ReadAll(io.LimitReader(f, maxAttachmentBytes+1))
		f.Close()
		if err != nil {
			return nil, apperr.Validationf("unreadable file %s: %v", header.Filename, err)
		}
		if len(content) > maxAttachmentBytes {
			return nil, apperr.Validationf("file %s exceeds size limit", header.Filename)
		}

		files = append(files, &entity.AttachmentFile{
			FileName: header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Content:  content,
		})
	}
	return files, nil
}
