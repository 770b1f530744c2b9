package security

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/fileguard/internal/application"
	"github.com/bryanwahyu/fileguard/internal/domain/activity"
	domsec "github.com/bryanwahyu/fileguard/internal/domain/security"
	"github.com/bryanwahyu/fileguard/internal/domain/threats"
	"github.com/bryanwahyu/fileguard/internal/middleware"
)

// summaryWindow is the trailing interval used by ThreatSummary.
const summaryWindow = 24 * time.Hour

// Service orchestrates the security core for its two call sites: "check this
// upload" and "record this activity", plus the read APIs for threats and the
// audit log.
type Service struct {
	Ledger   activity.Ledger
	Detector *activity.Detector
	Registry threats.Registry
	Archive  activity.Archive // optional durable mirror
	Notifier threats.Notifier // optional, best-effort
	Clock    application.Clock
	Log      *zap.Logger

	locks sync.Map // user id -> *sync.Mutex
}

// CheckUpload delegates to the risk evaluator. It does not touch the ledger;
// recording the upload activity is the caller's concern.
func (s *Service) CheckUpload(file domsec.FileDescriptor, analysis *domsec.ContentAnalysisResult) (domsec.Verdict, error) {
	if err := file.Validate(); err != nil {
		return domsec.Verdict{}, err
	}
	return domsec.Evaluate(file, analysis), nil
}

// RecordActivity appends the event, runs the anomaly pass and performs
// escalation. Append and inspection execute as one atomic unit per user so
// concurrent appends cannot both read a stale window. The action is always
// accepted and logged, even when found suspicious; only the upload path can
// reject anything.
func (s *Service) RecordActivity(ctx context.Context, userID string, typ activity.Type, details map[string]any) []threats.Finding {
	ev := &activity.Event{
		UserID:    userID,
		Type:      typ,
		Timestamp: s.Clock.Now().UTC(),
		IPAddress: stringDetail(details, "ip_address"),
		UserAgent: stringDetail(details, "user_agent"),
		Details:   details,
	}

	mu := s.userLock(userID)
	mu.Lock()
	s.Ledger.Append(ev)
	findings := s.Detector.Inspect(userID, ev)
	if len(findings) > 0 {
		ev.Suspicious = true
	}
	mu.Unlock()

	for _, f := range findings {
		s.Log.Warn("suspicious activity detected",
			zap.String("user_id", userID),
			zap.String("finding_type", f.Type),
			zap.String("severity", string(f.Severity)),
		)
		if f.Severity != threats.SeverityHigh {
			continue
		}
		if s.Notifier != nil {
			// Fire-and-forget; the notifier never blocks or fails us.
			s.Notifier.Notify(userID, f)
		}
		if _, err := s.Registry.Record(ctx, userID, f, ev.Timestamp); err != nil {
			// Degraded but successful: the finding is still returned even
			// when it could not be durably recorded.
			s.Log.Error("threat record not persisted",
				zap.Error(err),
				zap.String("user_id", userID),
				zap.String("finding_type", f.Type),
			)
		} else {
			middleware.IncrementThreatsRecorded()
		}
	}

	if s.Archive != nil {
		if err := s.Archive.Save(ctx, ev); err != nil {
			s.Log.Warn("audit archive write failed", zap.Error(err), zap.String("user_id", userID))
		}
	}

	return findings
}

// GetThreats returns the user's threat records, most-recent-first.
func (s *Service) GetThreats(ctx context.Context, userID string) ([]*threats.Record, error) {
	return s.Registry.ListByUser(ctx, userID)
}

// TransitionThreat moves a record through its lifecycle. Records are never
// deleted.
func (s *Service) TransitionThreat(ctx context.Context, id string, status threats.Status) error {
	return s.Registry.Transition(ctx, id, status)
}

// GetAuditLog returns the user's ledger entries, most-recent-first.
func (s *Service) GetAuditLog(userID string, limit int) []*activity.Event {
	tail := s.Ledger.Tail(userID, limit)
	out := make([]*activity.Event, len(tail))
	for i, ev := range tail {
		out[len(tail)-1-i] = ev
	}
	return out
}

// Summary aggregates the trailing 24 hours for the security-alerts view.
type Summary struct {
	SuspiciousActivities int               `json:"suspicious_activities"`
	ActiveThreats        int               `json:"active_threats"`
	Findings             []threats.Finding `json:"findings"`
}

// ThreatSummary counts suspicious activity over the trailing 24 hours and the
// user's active threat records. Medium/low findings are never auto-persisted,
// so this is where they become visible.
func (s *Service) ThreatSummary(ctx context.Context, userID string) (*Summary, error) {
	sum := &Summary{}

	suspicious := 0
	for _, ev := range s.Ledger.Window(userID, summaryWindow) {
		if ev.Suspicious {
			suspicious++
		}
	}
	sum.SuspiciousActivities = suspicious
	if suspicious > 0 {
		sum.Findings = append(sum.Findings, threats.Finding{
			Type:        threats.FindingSuspiciousActivity,
			Severity:    threats.SeverityMedium,
			Description: fmt.Sprintf("%d suspicious activities detected in last 24 hours", suspicious),
			Evidence:    map[string]any{"count": suspicious},
			Recommendations: []string{
				"Review recent account activity",
				"Change password if necessary",
			},
		})
	}

	records, err := s.Registry.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.Status == threats.StatusActive {
			sum.ActiveThreats++
		}
	}
	return sum, nil
}

func (s *Service) userLock(userID string) *sync.Mutex {
	if mu, ok := s.locks.Load(userID); ok {
		return mu.(*sync.Mutex)
	}
	mu, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func stringDetail(details map[string]any, key string) string {
	if details == nil {
		return ""
	}
	if v, ok := details[key].(string); ok {
		return v
	}
	return ""
}
