package storage

import (
	"context"
	"errors"
	"io"
)

var ErrInvalidKey = errors.New("invalid storage key")

type BlobStore interface {
	// Put stores r under key and returns the number of bytes written. A failed
	// Put leaves nothing behind.
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
