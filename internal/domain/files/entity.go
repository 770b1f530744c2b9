package files

import "time"

// ID type for stored files
type FileID string

// Security status of a stored file
const (
	StatusSafe    = "safe"
	StatusFlagged = "flagged"
	StatusPending = "pending"
)

// File is the metadata record of one stored object. The bytes themselves live
// in the object store under ObjectKey.
type File struct {
	ID             FileID     `json:"file_id"`
	OwnerID        string     `json:"owner_id"`
	Filename       string     `json:"filename"`
	ObjectKey      string     `json:"-"`
	Size           int64      `json:"size"`
	ContentType    string     `json:"content_type"`
	SHA256         string     `json:"sha256"`
	UploadedAt     time.Time  `json:"upload_date"`
	SecurityStatus string     `json:"security_status"`
	AnalysisJSON   string     `json:"-"`
	AccessCount    int        `json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed,omitempty"`
}
