package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	domain "github.com/bryanwahyu/fileguard/internal/domain/activity"
)

// AuditRepository is the durable mirror of the in-memory activity ledger.
// Losing a write here degrades the audit trail but never blocks the user
// action; callers log and continue.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) InitSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS user_activities (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  user_id VARCHAR(64) NOT NULL,
  activity_type VARCHAR(40) NOT NULL,
  timestamp DATETIME(6) NOT NULL,
  ip_address VARCHAR(45),
  user_agent TEXT,
  details_json JSON,
  suspicious TINYINT(1) NOT NULL DEFAULT 0,
  INDEX idx_user_activities_user (user_id, timestamp)
);`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

func (r *AuditRepository) Save(ctx context.Context, ev *domain.Event) error {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	const q = `
INSERT INTO user_activities
  (user_id, activity_type, timestamp, ip_address, user_agent, details_json, suspicious)
VALUES (?,?,?,?,?,?,?);`
	_, err := r.db.ExecContext(ctx, q,
		stringOrDash(ev.UserID), string(ev.Type), ts,
		ev.IPAddress, ev.UserAgent, jsonOrEmpty(ev.Details), ev.Suspicious,
	)
	return err
}

// ListByUser returns the user's archived events most-recent-first.
func (r *AuditRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT user_id, activity_type, timestamp, ip_address, user_agent, details_json, suspicious
FROM user_activities
WHERE user_id=? ORDER BY timestamp DESC LIMIT ?;`

	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Event
	for rows.Next() {
		var ev domain.Event
		var typ string
		var ip, ua, details sql.NullString
		if err := rows.Scan(&ev.UserID, &typ, &ev.Timestamp, &ip, &ua, &details, &ev.Suspicious); err != nil {
			return nil, err
		}
		ev.Type = domain.Type(typ)
		ev.IPAddress = ip.String
		ev.UserAgent = ua.String
		if details.Valid {
			_ = json.Unmarshal([]byte(details.String), &ev.Details)
		}
		out = append(out, &ev)
	}
	return out, rows.Err()
}

var _ domain.Archive = (*AuditRepository)(nil)
