package threats

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the record id is unknown to the registry.
var ErrNotFound = errors.New("threat record not found")

// ErrInvalidStatus indicates an unknown lifecycle status.
var ErrInvalidStatus = errors.New("invalid threat status")

// Registry port (interface for threat persistence)
type Registry interface {
	Record(ctx context.Context, userID string, f Finding, detectedAt time.Time) (*Record, error)
	ListByUser(ctx context.Context, userID string) ([]*Record, error)
	Transition(ctx context.Context, id string, status Status) error
}

// Notifier delivers best-effort security alerts for high-severity findings.
// Implementations must never block or fail the calling request path.
type Notifier interface {
	Notify(userID string, f Finding)
}
