package activity

import "time"

// Type enum for activity events
type Type string

const (
	TypeLoginSuccess Type = "login_success"
	TypeLoginFailed  Type = "login_failed"
	TypeFileAccess   Type = "file_access"
	TypeFileUpload   Type = "file_upload"
	TypeFileDelete   Type = "file_delete"
)

// ValidType reports whether t is a known activity type.
func ValidType(t Type) bool {
	switch t {
	case TypeLoginSuccess, TypeLoginFailed, TypeFileAccess, TypeFileUpload, TypeFileDelete:
		return true
	}
	return false
}

// Event is one entry in a user's activity ledger. Events are append-only;
// once appended, Suspicious is the only mutable field, set at most once by
// the anomaly pass synchronously after the append.
type Event struct {
	UserID     string         `json:"user_id"`
	Type       Type           `json:"activity_type"`
	Timestamp  time.Time      `json:"timestamp"`
	IPAddress  string         `json:"ip_address,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Suspicious bool           `json:"suspicious"`
}
