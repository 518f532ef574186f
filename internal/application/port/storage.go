package port

import (
	"context"
	"time"
)

// StoredObject describes a blob after a successful store.
type StoredObject struct {
	StoragePath string
	FileSize    int64
}

// BlobStore is the opaque blob store rejection attachments are written to.
// Store failures are treated as best-effort by the caller: a failed upload
// is logged and skipped, never fatal to the owning transition.
type BlobStore interface {
	Store(ctx context.Context, documentID, stepID int64, fileName string, content []byte) (*StoredObject, error)
	Read(ctx context.Context, storagePath string) ([]byte, error)
	SignedURL(storagePath string, ttl time.Duration) (string, error)
}
