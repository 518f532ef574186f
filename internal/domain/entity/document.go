package entity

import "time"

// Status constants mirrored onto the document record by the workflow engine.
// The engine writes this field but does not own the document lifecycle.
const (
	DocumentStatusDraft       = "draft"
	DocumentStatusPending     = "pending"
	DocumentStatusUnderReview = "under-review"
	DocumentStatusApproved    = "approved"
	DocumentStatusRejected    = "rejected"
)

// Document is the denormalized view of a document record the workflow
// engine needs: identity, organization scope, and the mirrored status.
type Document struct {
	ID             int64     `json:"id"`
	ProjectID      int64     `json:"project_id"`
	OrganizationID string    `json:"organization_id"`
	Title          string    `json:"title"`
	Status         string    `json:"status"`
	OwnerID        string    `json:"owner_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
