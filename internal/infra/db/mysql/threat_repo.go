package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	domain "github.com/bryanwahyu/fileguard/internal/domain/threats"
)

type ThreatRepository struct {
	db *sql.DB
}

func NewThreatRepository(db *sql.DB) *ThreatRepository {
	return &ThreatRepository{db: db}
}

// InitSchema creates the threat table when it does not exist yet.
func (r *ThreatRepository) InitSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS security_threats (
  id VARCHAR(64) PRIMARY KEY,
  user_id VARCHAR(64) NOT NULL,
  finding_type VARCHAR(64) NOT NULL,
  severity VARCHAR(16) NOT NULL,
  description TEXT,
  evidence_json JSON,
  recommendations_json JSON,
  detected_at DATETIME(6) NOT NULL,
  status VARCHAR(20) NOT NULL,
  INDEX idx_security_threats_user (user_id, detected_at)
);`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

// Record persists a finding escalation with status active. Records are never
// deleted afterwards, only status-transitioned.
func (r *ThreatRepository) Record(ctx context.Context, userID string, f domain.Finding, detectedAt time.Time) (*domain.Record, error) {
	rec := &domain.Record{
		ID:         domain.NewRecordID(userID, f.Type, detectedAt),
		UserID:     userID,
		Finding:    f,
		DetectedAt: detectedAt,
		Status:     domain.StatusActive,
	}

	const q = `
INSERT INTO security_threats
  (id, user_id, finding_type, severity, description, evidence_json, recommendations_json, detected_at, status)
VALUES (?,?,?,?,?,?,?,?,?);`

	_, err := r.db.ExecContext(ctx, q,
		rec.ID, stringOrDash(userID), f.Type, string(f.Severity), f.Description,
		jsonOrEmpty(f.Evidence), jsonOrEmpty(f.Recommendations),
		detectedAt, string(rec.Status),
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListByUser returns the user's records most-recent-first.
func (r *ThreatRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Record, error) {
	const q = `
SELECT id, user_id, finding_type, severity, description, evidence_json, recommendations_json, detected_at, status
FROM security_threats
WHERE user_id=? ORDER BY detected_at DESC;`

	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Record
	for rows.Next() {
		rec, err := scanThreat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *ThreatRepository) Transition(ctx context.Context, id string, status domain.Status) error {
	if !domain.ValidStatus(status) {
		return domain.ErrInvalidStatus
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE security_threats SET status=? WHERE id=?;`, string(status), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanThreat(rows *sql.Rows) (*domain.Record, error) {
	var rec domain.Record
	var severity, status string
	var evidence, recommendations sql.NullString
	if err := rows.Scan(
		&rec.ID, &rec.UserID, &rec.Finding.Type, &severity, &rec.Finding.Description,
		&evidence, &recommendations, &rec.DetectedAt, &status,
	); err != nil {
		return nil, err
	}
	rec.Finding.Severity = domain.Severity(severity)
	rec.Status = domain.Status(status)
	if evidence.Valid {
		_ = json.Unmarshal([]byte(evidence.String), &rec.Finding.Evidence)
	}
	if recommendations.Valid {
		_ = json.Unmarshal([]byte(recommendations.String), &rec.Finding.Recommendations)
	}
	return &rec, nil
}
