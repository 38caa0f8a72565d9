package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ArtifactKey is where an uploaded file of an attempt is stored.
func ArtifactKey(attemptID uint, fileName string) string {
	return fmt.Sprintf("attempts/%d/%s%s", attemptID, uuid.NewString(), strings.ToLower(filepath.Ext(fileName)))
}

// UploadSession tracks blobs written for one submission. Unless Commit is
// called, Release deletes every one of them, so callers defer Release right
// after opening the session.
type UploadSession struct {
	store     BlobStore
	keys      []string
	committed bool
}

func NewUploadSession(store BlobStore) *UploadSession {
	return &UploadSession{store: store}
}

func (s *UploadSession) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	n, err := s.store.Put(ctx, key, r)
	if err != nil {
		return 0, fmt.Errorf("failed to store %s: %w", key, err)
	}
	s.keys = append(s.keys, key)
	return n, nil
}

func (s *UploadSession) Keys() []string {
	return append([]string(nil), s.keys...)
}

func (s *UploadSession) Commit() {
	s.committed = true
}

// Release removes uncommitted blobs. It uses a fresh context so cleanup still
// runs when the request context is already cancelled.
func (s *UploadSession) Release() error {
	if s.committed || len(s.keys) == 0 {
		return nil
	}
	var errs []error
	for _, key := range s.keys {
		if err := s.store.Delete(context.Background(), key); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", key, err))
		}
	}
	s.keys = nil
	return errors.Join(errs...)
}
