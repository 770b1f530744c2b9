package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/fileguard/internal/domain/threats"
)

func finding(typ string) threats.Finding {
	return threats.Finding{Type: typ, Severity: threats.SeverityHigh, Description: "test"}
}

func TestRecordAndList(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	first, err := m.Record(ctx, "u1", finding(threats.FindingBruteForceAttempt), at)
	require.NoError(t, err)
	assert.Equal(t, threats.StatusActive, first.Status)
	assert.NotEmpty(t, first.ID)

	second, err := m.Record(ctx, "u1", finding(threats.FindingMultipleIPs), at.Add(time.Minute))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	_, err = m.Record(ctx, "u2", finding(threats.FindingMultipleIPs), at)
	require.NoError(t, err)

	// Most-recent-first, scoped to the user.
	got, err := m.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)
}

func TestTransition(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	rec, err := m.Record(ctx, "u1", finding(threats.FindingBruteForceAttempt), time.Now())
	require.NoError(t, err)

	require.NoError(t, m.Transition(ctx, rec.ID, threats.StatusResolved))
	got, _ := m.ListByUser(ctx, "u1")
	assert.Equal(t, threats.StatusResolved, got[0].Status)

	// Records are never removed, only status-transitioned.
	require.NoError(t, m.Transition(ctx, rec.ID, threats.StatusFalsePositive))
	got, _ = m.ListByUser(ctx, "u1")
	require.Len(t, got, 1)
	assert.Equal(t, threats.StatusFalsePositive, got[0].Status)
}

func TestTransitionErrors(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	err := m.Transition(ctx, "missing", threats.StatusResolved)
	assert.ErrorIs(t, err, threats.ErrNotFound)

	rec, _ := m.Record(ctx, "u1", finding(threats.FindingMultipleIPs), time.Now())
	err = m.Transition(ctx, rec.ID, threats.Status("deleted"))
	assert.ErrorIs(t, err, threats.ErrInvalidStatus)

	// The record is untouched after the rejected transition.
	got, _ := m.ListByUser(ctx, "u1")
	assert.Equal(t, threats.StatusActive, got[0].Status)
}
