package activity

import (
	"context"
	"time"
)

// Clock abstraction so windowed rules are testable
type Clock interface {
	Now() time.Time
}

// Ledger is the per-user, append-only, time-ordered activity log. Appends are
// O(1) amortized with a FIFO retention cap per user; per-user sequences are
// independent and may be updated concurrently without cross-user
// coordination. No call blocks on external I/O, so no context is taken.
type Ledger interface {
	// Append adds the event to its user's sequence, evicting the oldest
	// entry when the retention cap is exceeded. The ledger retains the
	// pointer; the caller may set Suspicious afterwards under the same
	// per-user critical section as the append.
	Append(ev *Event)

	// Window returns the user's events with timestamp >= now-d, in original
	// insertion order.
	Window(userID string, d time.Duration) []*Event

	// Tail returns the user's most recent n events in insertion order.
	Tail(userID string, n int) []*Event
}

// Archive is the durable mirror of the ledger kept for audit completeness.
// Failures writing to it degrade, they never block the user action.
type Archive interface {
	Save(ctx context.Context, ev *Event) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*Event, error)
}
