package registry

import (
	"context"
	"sync"
	"time"

	"github.com/bryanwahyu/fileguard/internal/domain/threats"
)

// Memory is the in-memory threat registry. Records are kept forever; audit
// completeness requires retaining resolved and false-positive entries.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*threats.Record
	order   []string // insertion order of record ids
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]*threats.Record)}
}

func (m *Memory) Record(ctx context.Context, userID string, f threats.Finding, detectedAt time.Time) (*threats.Record, error) {
	rec := &threats.Record{
		ID:         threats.NewRecordID(userID, f.Type, detectedAt),
		UserID:     userID,
		Finding:    f,
		DetectedAt: detectedAt,
		Status:     threats.StatusActive,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	m.order = append(m.order, rec.ID)
	return rec, nil
}

// ListByUser returns the user's records most-recent-first.
func (m *Memory) ListByUser(ctx context.Context, userID string) ([]*threats.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*threats.Record
	for i := len(m.order) - 1; i >= 0; i-- {
		if rec := m.records[m.order[i]]; rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *Memory) Transition(ctx context.Context, id string, status threats.Status) error {
	if !threats.ValidStatus(status) {
		return threats.ErrInvalidStatus
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return threats.ErrNotFound
	}
	rec.Status = status
	return nil
}

var _ threats.Registry = (*Memory)(nil)
