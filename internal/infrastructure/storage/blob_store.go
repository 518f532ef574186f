// Package storage provides a local-filesystem blob store for rejection
// attachments, keyed by (document, step, file name), with HMAC-signed
// download URLs so blobs are never served from an unauthenticated path.
package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/northdocs/docflow/internal/application/port"
	"github.com/northdocs/docflow/internal/domain/apperr"
)

// LocalBlobStore implements port.BlobStore on the local filesystem
type LocalBlobStore struct {
	baseDir    string
	signingKey []byte
	logger     *zap.Logger
}

// NewLocalBlobStore creates a new LocalBlobStore
func NewLocalBlobStore(baseDir string, signingKey string, logger *zap.Logger) *LocalBlobStore {
	return &LocalBlobStore{
		baseDir:    baseDir,
		signingKey: []byte(signingKey),
		logger:     logger,
	}
}

// Store writes content under documents/<documentID>/steps/<stepID>/<fileName>
func (s *LocalBlobStore) Store(ctx context.Context, documentID, stepID int64, fileName string, content []byte) (*port.StoredObject, error) {
	cleanName := sanitizeFileName(fileName)
	if cleanName == "" {
		return nil, fmt.Errorf("%w: unusable file name %q", apperr.ErrStorage, fileName)
	}

	relPath := filepath.Join(
		"documents", strconv.FormatInt(documentID, 10),
		"steps", strconv.FormatInt(stepID, 10),
		cleanName,
	)

	fullPath, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create blob directories",
			zap.String("path", fullPath), zap.Error(err))
		return nil, fmt.Errorf("%w: create directories: %v", apperr.ErrStorage, err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write blob",
			zap.String("path", fullPath), zap.Error(err))
		return nil, fmt.Errorf("%w: write blob: %v", apperr.ErrStorage, err)
	}

	s.logger.Debug("Blob stored",
		zap.String("path", relPath),
		zap.Int("size", len(content)))

	return &port.StoredObject{
		StoragePath: relPath,
		FileSize:    int64(len(content)),
	}, nil
}

// Read returns the content of a stored blob
func (s *LocalBlobStore) Read(ctx context.Context, storagePath string) ([]byte, error) {
	fullPath, err := s.resolve(storagePath)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		s.logger.Error("Failed to read blob", zap.String("path", storagePath), zap.Error(err))
		return nil, fmt.Errorf("%w: read blob: %v", apperr.ErrStorage, err)
	}
	return content, nil
}

// SignedURL returns an opaque download token binding the storage path to an
// expiry: base64url(path|expiresUnix|hmac). The download endpoint verifies
// it with VerifyToken and streams the blob.
func (s *LocalBlobStore) SignedURL(storagePath string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("%w: non-positive ttl", apperr.ErrStorage)
	}

	expires := time.Now().Add(ttl).Unix()
	payload := fmt.Sprintf("%s|%d", storagePath, expires)
	sig := s.sign(payload)

	token := base64.RawURLEncoding.EncodeToString([]byte(payload + "|" + sig))
	return token, nil
}

// VerifyToken validates a download token and returns the storage path it
// was issued for. Expired or tampered tokens fail with ErrNotAuthorized.
func (s *LocalBlobStore) VerifyToken(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", apperr.NotAuthorizedf("malformed download token")
	}

	parts := strings.Split(string(raw), "|")
	if len(parts) != 3 {
		return "", apperr.NotAuthorizedf("malformed download token")
	}

	storagePath, expiresStr, sig := parts[0], parts[1], parts[2]

	expected := s.sign(storagePath + "|" + expiresStr)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return "", apperr.NotAuthorizedf("invalid download token signature")
	}

	expires, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil || time.Now().Unix() > expires {
		return "", apperr.NotAuthorizedf("download token expired")
	}

	return storagePath, nil
}

func (s *LocalBlobStore) sign(payload string) string {
	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// resolve joins a relative storage path with the base directory and refuses
// anything that escapes it.
func (s *LocalBlobStore) resolve(relPath string) (string, error) {
	fullPath := filepath.Join(s.baseDir, relPath)

	base, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("%w: resolve base dir: %v", apperr.ErrStorage, err)
	}
	abs, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("%w: resolve path: %v", apperr.ErrStorage, err)
	}

	if abs != base && !strings.HasPrefix(abs, base+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: path escapes storage root: %s", apperr.ErrStorage, relPath)
	}
	return abs, nil
}

func sanitizeFileName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(os.PathSeparator) {
		return ""
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_', r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), ". ")
}
