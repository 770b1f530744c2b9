package ledger

import (
	"sync"
	"time"

	"github.com/bryanwahyu/fileguard/internal/domain/activity"
)

// DefaultRetention is the per-user event cap; oldest entries are evicted
// first once it is exceeded.
const DefaultRetention = 1000

// Memory is the in-memory activity ledger. Each user's sequence has its own
// lock, so appends for unrelated users never contend.
type Memory struct {
	mu    sync.RWMutex
	users map[string]*userLog
	clock activity.Clock
	cap   int
}

type userLog struct {
	mu     sync.Mutex
	events []*activity.Event
}

func NewMemory(clock activity.Clock, retention int) *Memory {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Memory{
		users: make(map[string]*userLog),
		clock: clock,
		cap:   retention,
	}
}

func (m *Memory) userLog(userID string) *userLog {
	m.mu.RLock()
	ul, ok := m.users[userID]
	m.mu.RUnlock()
	if ok {
		return ul
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ul, ok := m.users[userID]; ok {
		return ul
	}
	ul = &userLog{}
	m.users[userID] = ul
	return ul
}

// Append adds the event and enforces the FIFO retention cap.
func (m *Memory) Append(ev *activity.Event) {
	ul := m.userLog(ev.UserID)
	ul.mu.Lock()
	defer ul.mu.Unlock()

	ul.events = append(ul.events, ev)
	if len(ul.events) > m.cap {
		// Copy instead of reslicing so evicted entries can be collected.
		kept := make([]*activity.Event, m.cap)
		copy(kept, ul.events[len(ul.events)-m.cap:])
		ul.events = kept
	}
}

// Window returns events with timestamp >= now-d in insertion order. Linear
// scan; the retention cap bounds it to at most 1000 entries.
func (m *Memory) Window(userID string, d time.Duration) []*activity.Event {
	cutoff := m.clock.Now().Add(-d)

	ul := m.userLog(userID)
	ul.mu.Lock()
	defer ul.mu.Unlock()

	var out []*activity.Event
	for _, ev := range ul.events {
		if !ev.Timestamp.Before(cutoff) {
			out = append(out, ev)
		}
	}
	return out
}

// Tail returns the most recent n events in insertion order.
func (m *Memory) Tail(userID string, n int) []*activity.Event {
	ul := m.userLog(userID)
	ul.mu.Lock()
	defer ul.mu.Unlock()

	if n <= 0 || n > len(ul.events) {
		n = len(ul.events)
	}
	out := make([]*activity.Event, n)
	copy(out, ul.events[len(ul.events)-n:])
	return out
}

var _ activity.Ledger = (*Memory)(nil)
