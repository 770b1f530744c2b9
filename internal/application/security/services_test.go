package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bryanwahyu/fileguard/internal/domain/activity"
	domsec "github.com/bryanwahyu/fileguard/internal/domain/security"
	"github.com/bryanwahyu/fileguard/internal/domain/threats"
	"github.com/bryanwahyu/fileguard/internal/infra/ledger"
	"github.com/bryanwahyu/fileguard/internal/infra/registry"
	"github.com/bryanwahyu/fileguard/internal/middleware"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

type captureNotifier struct {
	calls []threats.Finding
}

func (n *captureNotifier) Notify(userID string, f threats.Finding) {
	n.calls = append(n.calls, f)
}

type failingRegistry struct{}

func (failingRegistry) Record(ctx context.Context, userID string, f threats.Finding, at time.Time) (*threats.Record, error) {
	return nil, errors.New("db down")
}
func (failingRegistry) ListByUser(ctx context.Context, userID string) ([]*threats.Record, error) {
	return nil, nil
}
func (failingRegistry) Transition(ctx context.Context, id string, status threats.Status) error {
	return nil
}

type captureArchive struct {
	saved []*activity.Event
	err   error
}

func (a *captureArchive) Save(ctx context.Context, ev *activity.Event) error {
	if a.err != nil {
		return a.err
	}
	a.saved = append(a.saved, ev)
	return nil
}

func (a *captureArchive) ListByUser(ctx context.Context, userID string, limit int) ([]*activity.Event, error) {
	return a.saved, nil
}

var noon = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newService(clock *fakeClock) (*Service, *captureNotifier, *registry.Memory) {
	lg := ledger.NewMemory(clock, 0)
	notifier := &captureNotifier{}
	reg := registry.NewMemory()
	svc := &Service{
		Ledger:   lg,
		Detector: activity.NewDetector(lg, clock, activity.DetectorConfig{}),
		Registry: reg,
		Notifier: notifier,
		Clock:    clock,
		Log:      zap.NewNop(),
	}
	return svc, notifier, reg
}

func TestRecordActivityCleanEvent(t *testing.T) {
	svc, notifier, _ := newService(&fakeClock{t: noon})

	findings := svc.RecordActivity(context.Background(), "u1", activity.TypeLoginSuccess, map[string]any{
		"ip_address": "10.0.0.1",
	})

	assert.Empty(t, findings)
	assert.Empty(t, notifier.calls)

	tail := svc.Ledger.Tail("u1", 1)
	require.Len(t, tail, 1)
	assert.False(t, tail[0].Suspicious)
	assert.Equal(t, "10.0.0.1", tail[0].IPAddress)
}

func TestRecordActivityMarksSuspicious(t *testing.T) {
	// 03:00 UTC triggers the off-hours rule, low severity: the event is
	// flagged but nothing is escalated.
	night := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	svc, notifier, reg := newService(&fakeClock{t: night})

	findings := svc.RecordActivity(context.Background(), "u1", activity.TypeFileAccess, nil)

	require.Len(t, findings, 1)
	assert.Equal(t, threats.FindingUnusualTimeAccess, findings[0].Type)

	tail := svc.Ledger.Tail("u1", 1)
	require.Len(t, tail, 1)
	assert.True(t, tail[0].Suspicious)

	assert.Empty(t, notifier.calls)
	records, _ := reg.ListByUser(context.Background(), "u1")
	assert.Empty(t, records)
}

func TestRecordActivityEscalatesHighSeverity(t *testing.T) {
	svc, notifier, reg := newService(&fakeClock{t: noon})
	ctx := context.Background()

	var findings []threats.Finding
	for i := 0; i < 5; i++ {
		findings = svc.RecordActivity(ctx, "u1", activity.TypeLoginFailed, nil)
	}

	require.Len(t, findings, 1)
	assert.Equal(t, threats.FindingBruteForceAttempt, findings[0].Type)
	assert.Equal(t, threats.SeverityHigh, findings[0].Severity)

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, threats.FindingBruteForceAttempt, notifier.calls[0].Type)

	records, err := reg.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, threats.StatusActive, records[0].Status)
	assert.Equal(t, noon, records[0].DetectedAt)
}

func TestRecordActivityCountsRecordedThreats(t *testing.T) {
	before := middleware.GetMetrics()["threats_recorded"].(uint64)

	svc, _, _ := newService(&fakeClock{t: noon})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		svc.RecordActivity(ctx, "u1", activity.TypeLoginFailed, nil)
	}

	after := middleware.GetMetrics()["threats_recorded"].(uint64)
	assert.Equal(t, before+1, after)
}

func TestRecordActivityDoesNotCountFailedPersistence(t *testing.T) {
	before := middleware.GetMetrics()["threats_recorded"].(uint64)

	svc, _, _ := newService(&fakeClock{t: noon})
	svc.Registry = failingRegistry{}
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		svc.RecordActivity(ctx, "u1", activity.TypeLoginFailed, nil)
	}

	after := middleware.GetMetrics()["threats_recorded"].(uint64)
	assert.Equal(t, before, after)
}

func TestRecordActivityDegradesOnRegistryFailure(t *testing.T) {
	svc, _, _ := newService(&fakeClock{t: noon})
	svc.Registry = failingRegistry{}
	ctx := context.Background()

	var findings []threats.Finding
	for i := 0; i < 5; i++ {
		findings = svc.RecordActivity(ctx, "u1", activity.TypeLoginFailed, nil)
	}

	// The action is still accepted and the finding still returned.
	require.Len(t, findings, 1)
	assert.Len(t, svc.Ledger.Tail("u1", 0), 5)
}

func TestRecordActivityArchiveFailureDoesNotBlock(t *testing.T) {
	svc, _, _ := newService(&fakeClock{t: noon})
	svc.Archive = &captureArchive{err: errors.New("disk full")}

	findings := svc.RecordActivity(context.Background(), "u1", activity.TypeFileAccess, nil)
	assert.Empty(t, findings)
	assert.Len(t, svc.Ledger.Tail("u1", 0), 1)
}

func TestRecordActivityMirrorsToArchive(t *testing.T) {
	svc, _, _ := newService(&fakeClock{t: noon})
	archive := &captureArchive{}
	svc.Archive = archive

	svc.RecordActivity(context.Background(), "u1", activity.TypeFileUpload, map[string]any{"filename": "a.pdf"})

	require.Len(t, archive.saved, 1)
	assert.Equal(t, activity.TypeFileUpload, archive.saved[0].Type)
}

func TestGetAuditLogMostRecentFirst(t *testing.T) {
	clock := &fakeClock{t: noon}
	svc, _, _ := newService(clock)
	ctx := context.Background()

	svc.RecordActivity(ctx, "u1", activity.TypeLoginSuccess, nil)
	clock.t = noon.Add(time.Minute)
	svc.RecordActivity(ctx, "u1", activity.TypeFileAccess, nil)
	clock.t = noon.Add(2 * time.Minute)
	svc.RecordActivity(ctx, "u1", activity.TypeFileDelete, nil)

	log := svc.GetAuditLog("u1", 2)
	require.Len(t, log, 2)
	assert.Equal(t, activity.TypeFileDelete, log[0].Type)
	assert.Equal(t, activity.TypeFileAccess, log[1].Type)
}

func TestCheckUploadValidates(t *testing.T) {
	svc, _, _ := newService(&fakeClock{t: noon})

	_, err := svc.CheckUpload(domsec.FileDescriptor{Filename: ""}, nil)
	assert.ErrorIs(t, err, domsec.ErrInvalidFile)

	v, err := svc.CheckUpload(domsec.FileDescriptor{Filename: "a.pdf", Size: 10}, nil)
	require.NoError(t, err)
	assert.True(t, v.Safe)
}

func TestThreatSummary(t *testing.T) {
	night := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	svc, _, reg := newService(&fakeClock{t: night})
	ctx := context.Background()

	// Two off-hours events, both flagged suspicious.
	svc.RecordActivity(ctx, "u1", activity.TypeFileAccess, nil)
	svc.RecordActivity(ctx, "u1", activity.TypeLoginSuccess, nil)

	rec, err := reg.Record(ctx, "u1", threats.Finding{
		Type:     threats.FindingMultipleIPs,
		Severity: threats.SeverityHigh,
	}, night)
	require.NoError(t, err)
	require.NoError(t, reg.Transition(ctx, rec.ID, threats.StatusResolved))
	_, err = reg.Record(ctx, "u1", threats.Finding{
		Type:     threats.FindingBruteForceAttempt,
		Severity: threats.SeverityHigh,
	}, night.Add(time.Second))
	require.NoError(t, err)

	sum, err := svc.ThreatSummary(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, 2, sum.SuspiciousActivities)
	// Resolved records are excluded from the active count.
	assert.Equal(t, 1, sum.ActiveThreats)

	require.Len(t, sum.Findings, 1)
	assert.Equal(t, threats.FindingSuspiciousActivity, sum.Findings[0].Type)
	assert.Equal(t, threats.SeverityMedium, sum.Findings[0].Severity)
	assert.Equal(t, "2 suspicious activities detected in last 24 hours", sum.Findings[0].Description)
}

func TestThreatSummaryQuietUser(t *testing.T) {
	svc, _, _ := newService(&fakeClock{t: noon})

	sum, err := svc.ThreatSummary(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, sum.SuspiciousActivities)
	assert.Zero(t, sum.ActiveThreats)
	assert.Empty(t, sum.Findings)
}
