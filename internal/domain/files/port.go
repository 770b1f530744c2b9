package files

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound indicates the file does not exist or belongs to another owner.
var ErrNotFound = errors.New("file not found")

// Repository port (interface for metadata persistence)
type Repository interface {
	Save(ctx context.Context, f *File) error
	Get(ctx context.Context, ownerID string, id FileID) (*File, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*File, error)
	Delete(ctx context.Context, ownerID string, id FileID) error
	// TouchAccess bumps the access counter and last-access time.
	TouchAccess(ctx context.Context, ownerID string, id FileID, at time.Time) error
}

// ObjectStore port (interface for file byte storage)
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// PresignGet returns a time-limited download URL for the object.
	PresignGet(ctx context.Context, key, filename string, expiry time.Duration) (string, error)
	Remove(ctx context.Context, key string) error
}
