package threats

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Severity of a finding
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Finding type identifiers
const (
	FindingRapidFileAccess    = "rapid_file_access"
	FindingMultipleIPs        = "multiple_ips"
	FindingUnusualTimeAccess  = "unusual_time_access"
	FindingBruteForceAttempt  = "brute_force_attempt"
	FindingSuspiciousActivity = "suspicious_activity"
)

// Finding is a single anomaly signal detected from activity history. It is
// ephemeral unless escalated into a Record.
type Finding struct {
	Type            string         `json:"type"`
	Severity        Severity       `json:"severity"`
	Description     string         `json:"description"`
	Evidence        map[string]any `json:"evidence,omitempty"`
	Recommendations []string       `json:"recommendations,omitempty"`
}

// Status lifecycle of a recorded threat
type Status string

const (
	StatusActive        Status = "active"
	StatusResolved      Status = "resolved"
	StatusFalsePositive Status = "false_positive"
)

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusActive, StatusResolved, StatusFalsePositive:
		return true
	}
	return false
}

// Record is a persisted, status-tracked escalation of a finding. Records are
// never physically deleted, only status-transitioned.
type Record struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Finding    Finding   `json:"finding"`
	DetectedAt time.Time `json:"detected_at"`
	Status     Status    `json:"status"`
}

// NewRecordID derives an opaque id from (user, finding type, timestamp). The
// nanosecond timestamp keeps ids distinct across rapid concurrent detections.
func NewRecordID(userID, findingType string, at time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s_%s_%d", userID, findingType, at.UnixNano())))
	return hex.EncodeToString(sum[:16])
}
