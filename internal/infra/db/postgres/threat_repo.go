package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	domain "github.com/bryanwahyu/fileguard/internal/domain/threats"
)

type ThreatRepository struct{ db *sql.DB }

func NewThreatRepository(db *sql.DB) *ThreatRepository { return &ThreatRepository{db: db} }

func (r *ThreatRepository) InitSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS security_threats (
  id VARCHAR(64) PRIMARY KEY,
  user_id VARCHAR(64) NOT NULL,
  finding_type VARCHAR(64) NOT NULL,
  severity VARCHAR(16) NOT NULL,
  description TEXT,
  evidence_json JSONB,
  recommendations_json JSONB,
  detected_at TIMESTAMPTZ NOT NULL,
  status VARCHAR(20) NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_security_threats_user ON security_threats(user_id, detected_at);`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

func (r *ThreatRepository) Record(ctx context.Context, userID string, f domain.Finding, detectedAt time.Time) (*domain.Record, error) {
	rec := &domain.Record{
		ID:         domain.NewRecordID(userID, f.Type, detectedAt),
		UserID:     userID,
		Finding:    f,
		DetectedAt: detectedAt,
		Status:     domain.StatusActive,
	}

	evidence, _ := json.Marshal(f.Evidence)
	recs, _ := json.Marshal(f.Recommendations)

	const q = `
INSERT INTO security_threats
  (id, user_id, finding_type, severity, description, evidence_json, recommendations_json, detected_at, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`
	_, err := r.db.ExecContext(ctx, q,
		rec.ID, userID, f.Type, string(f.Severity), f.Description,
		nullableJSON(evidence), nullableJSON(recs), detectedAt, string(rec.Status),
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *ThreatRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Record, error) {
	const q = `
SELECT id, user_id, finding_type, severity, description, evidence_json, recommendations_json, detected_at, status
FROM security_threats
WHERE user_id=$1 ORDER BY detected_at DESC;`

	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Record
	for rows.Next() {
		var rec domain.Record
		var severity, status string
		var evidence, recs sql.NullString
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.Finding.Type, &severity, &rec.Finding.Description,
			&evidence, &recs, &rec.DetectedAt, &status,
		); err != nil {
			return nil, err
		}
		rec.Finding.Severity = domain.Severity(severity)
		rec.Status = domain.Status(status)
		if evidence.Valid {
			_ = json.Unmarshal([]byte(evidence.String), &rec.Finding.Evidence)
		}
		if recs.Valid {
			_ = json.Unmarshal([]byte(recs.String), &rec.Finding.Recommendations)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (r *ThreatRepository) Transition(ctx context.Context, id string, status domain.Status) error {
	if !domain.ValidStatus(status) {
		return domain.ErrInvalidStatus
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE security_threats SET status=$1 WHERE id=$2;`, string(status), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	return string(b)
}
