package entity

import "time"

// RejectionAttachment represents a supporting file uploaded alongside a
// reject decision. Rows are immutable after creation and are removed only
// by cascade when the owning workflow is deleted.
type RejectionAttachment struct {
	ID          int64     `json:"id"`
	StepID      int64     `json:"step_id"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	FileType    string    `json:"file_type"`
	StoragePath string    `json:"storage_path"`
	UploadedBy  string    `json:"uploaded_by"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// AttachmentFile carries an in-memory file on its way into the blob store.
type AttachmentFile struct {
	FileName string
	MimeType string
	Content  []byte
}

// AttachmentUploadReport summarizes a best-effort multi-file upload:
// files that failed to store are skipped, never fatal.
type AttachmentUploadReport struct {
	Stored  []*RejectionAttachment `json:"stored"`
	Skipped []string               `json:"skipped,omitempty"`
}
