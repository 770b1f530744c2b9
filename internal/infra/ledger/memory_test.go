package ledger

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/fileguard/internal/domain/activity"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestAppendAndTail(t *testing.T) {
	m := NewMemory(fixedClock{t: base}, 0)

	for i := 0; i < 5; i++ {
		m.Append(&activity.Event{
			UserID:    "u1",
			Type:      activity.TypeFileAccess,
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Details:   map[string]any{"seq": i},
		})
	}

	tail := m.Tail("u1", 3)
	require.Len(t, tail, 3)
	assert.Equal(t, 2, tail[0].Details["seq"])
	assert.Equal(t, 4, tail[2].Details["seq"])

	// n beyond the sequence length returns everything.
	assert.Len(t, m.Tail("u1", 100), 5)
	assert.Empty(t, m.Tail("unknown", 10))
}

func TestRetentionCapEvictsOldest(t *testing.T) {
	m := NewMemory(fixedClock{t: base}, 0)

	for i := 0; i < DefaultRetention+1; i++ {
		m.Append(&activity.Event{
			UserID:    "u1",
			Type:      activity.TypeFileAccess,
			Timestamp: base,
			Details:   map[string]any{"seq": i},
		})
	}

	tail := m.Tail("u1", 0)
	require.Len(t, tail, DefaultRetention)
	// seq 0 was evicted; the sequence now starts at 1.
	assert.Equal(t, 1, tail[0].Details["seq"])
	assert.Equal(t, DefaultRetention, tail[len(tail)-1].Details["seq"])
}

func TestRetentionCapIsPerUser(t *testing.T) {
	m := NewMemory(fixedClock{t: base}, 3)

	for i := 0; i < 5; i++ {
		m.Append(&activity.Event{UserID: "u1", Timestamp: base})
	}
	m.Append(&activity.Event{UserID: "u2", Timestamp: base})

	assert.Len(t, m.Tail("u1", 0), 3)
	assert.Len(t, m.Tail("u2", 0), 1)
}

func TestWindowCutoffInclusive(t *testing.T) {
	m := NewMemory(fixedClock{t: base}, 0)

	m.Append(&activity.Event{UserID: "u1", Timestamp: base.Add(-11 * time.Minute)})
	m.Append(&activity.Event{UserID: "u1", Timestamp: base.Add(-10 * time.Minute)}) // exactly at cutoff
	m.Append(&activity.Event{UserID: "u1", Timestamp: base.Add(-time.Minute)})

	got := m.Window("u1", 10*time.Minute)
	require.Len(t, got, 2)
	assert.Equal(t, base.Add(-10*time.Minute), got[0].Timestamp)
	assert.Equal(t, base.Add(-time.Minute), got[1].Timestamp)
}

func TestWindowPreservesInsertionOrder(t *testing.T) {
	m := NewMemory(fixedClock{t: base}, 0)

	for i := 0; i < 10; i++ {
		m.Append(&activity.Event{
			UserID:    "u1",
			Timestamp: base,
			Details:   map[string]any{"seq": i},
		})
	}

	got := m.Window("u1", time.Minute)
	require.Len(t, got, 10)
	for i, ev := range got {
		assert.Equal(t, i, ev.Details["seq"])
	}
}

func TestConcurrentAppendsAcrossUsers(t *testing.T) {
	m := NewMemory(fixedClock{t: base}, 0)

	const users, perUser = 8, 200
	var wg sync.WaitGroup
	for u := 0; u < users; u++ {
		wg.Add(1)
		go func(u int) {
			defer wg.Done()
			id := fmt.Sprintf("user-%d", u)
			for i := 0; i < perUser; i++ {
				m.Append(&activity.Event{UserID: id, Timestamp: base})
			}
		}(u)
	}
	wg.Wait()

	for u := 0; u < users; u++ {
		assert.Len(t, m.Tail(fmt.Sprintf("user-%d", u), 0), perUser)
	}
}
