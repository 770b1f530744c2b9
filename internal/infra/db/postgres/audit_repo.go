package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	domain "github.com/bryanwahyu/fileguard/internal/domain/activity"
)

// AuditRepository mirrors the in-memory activity ledger into postgres. A
// failed write degrades the audit trail, never the user action.
type AuditRepository struct{ db *sql.DB }

func NewAuditRepository(db *sql.DB) *AuditRepository { return &AuditRepository{db: db} }

func (r *AuditRepository) InitSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS user_activities (
  id BIGSERIAL PRIMARY KEY,
  user_id VARCHAR(64) NOT NULL,
  activity_type VARCHAR(40) NOT NULL,
  timestamp TIMESTAMPTZ NOT NULL,
  ip_address VARCHAR(45),
  user_agent TEXT,
  details_json JSONB,
  suspicious BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_user_activities_user ON user_activities(user_id, timestamp);`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

func (r *AuditRepository) Save(ctx context.Context, ev *domain.Event) error {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	details, _ := json.Marshal(ev.Details)
	const q = `
INSERT INTO user_activities
  (user_id, activity_type, timestamp, ip_address, user_agent, details_json, suspicious)
VALUES ($1,$2,$3,$4,$5,$6,$7);`
	_, err := r.db.ExecContext(ctx, q,
		ev.UserID, string(ev.Type), ts,
		ev.IPAddress, ev.UserAgent, nullableJSON(details), ev.Suspicious,
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
WHERE user_id=$1 ORDER BY timestamp DESC LIMIT $2;`

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
