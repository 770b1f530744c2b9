package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/bryanwahyu/fileguard/internal/domain/files"
)

type FileRepository struct{ db *sql.DB }

func NewFileRepository(db *sql.DB) *FileRepository { return &FileRepository{db: db} }

func (r *FileRepository) InitSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS stored_files (
  id VARCHAR(36) PRIMARY KEY,
  owner_id VARCHAR(64) NOT NULL,
  filename VARCHAR(255) NOT NULL,
  object_key VARCHAR(512) NOT NULL,
  size BIGINT NOT NULL,
  content_type VARCHAR(128),
  sha256 CHAR(64),
  uploaded_at TIMESTAMPTZ NOT NULL,
  security_status VARCHAR(20) NOT NULL,
  analysis_json JSONB,
  access_count INT NOT NULL DEFAULT 0,
  last_accessed_at TIMESTAMPTZ NULL
);
CREATE INDEX IF NOT EXISTS idx_stored_files_owner ON stored_files(owner_id, uploaded_at);`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

func (r *FileRepository) Save(ctx context.Context, f *domain.File) error {
	const q = `
INSERT INTO stored_files
  (id, owner_id, filename, object_key, size, content_type, sha256,
   uploaded_at, security_status, analysis_json, access_count, last_accessed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  security_status = EXCLUDED.security_status,
  analysis_json = EXCLUDED.analysis_json,
  access_count = EXCLUDED.access_count,
  last_accessed_at = EXCLUDED.last_accessed_at;`

	uploaded := f.UploadedAt
	if uploaded.IsZero() {
		uploaded = time.Now()
	}
	analysis := f.AnalysisJSON
	if analysis == "" {
		analysis = "{}"
	}

	_, err := r.db.ExecContext(ctx, q,
		string(f.ID), f.OwnerID, f.Filename, f.ObjectKey,
		f.Size, f.ContentType, f.SHA256,
		uploaded, f.SecurityStatus, analysis,
		f.AccessCount, f.LastAccessedAt,
	)
	return err
}

func (r *FileRepository) Get(ctx context.Context, ownerID string, id domain.FileID) (*domain.File, error) {
	const q = `
SELECT id, owner_id, filename, object_key, size, content_type, sha256,
       uploaded_at, security_status, analysis_json, access_count, last_accessed_at
FROM stored_files
WHERE owner_id=$1 AND id=$2 LIMIT 1;`

	f, err := scanFile(r.db.QueryRowContext(ctx, q, ownerID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return f, err
}

func (r *FileRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.File, error) {
	const q = `
SELECT id, owner_id, filename, object_key, size, content_type, sha256,
       uploaded_at, security_status, analysis_json, access_count, last_accessed_at
FROM stored_files
WHERE owner_id=$1 ORDER BY uploaded_at DESC;`

	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *FileRepository) Delete(ctx context.Context, ownerID string, id domain.FileID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM stored_files WHERE owner_id=$1 AND id=$2;`, ownerID, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *FileRepository) TouchAccess(ctx context.Context, ownerID string, id domain.FileID, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE stored_files
SET access_count = access_count + 1, last_accessed_at = $1
WHERE owner_id=$2 AND id=$3;`, at, ownerID, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*domain.File, error) {
	var f domain.File
	var id string
	var contentType, sha, analysis sql.NullString
	var lastAccess sql.NullTime
	if err := row.Scan(
		&id, &f.OwnerID, &f.Filename, &f.ObjectKey, &f.Size, &contentType, &sha,
		&f.UploadedAt, &f.SecurityStatus, &analysis, &f.AccessCount, &lastAccess,
	); err != nil {
		return nil, err
	}
	f.ID = domain.FileID(id)
	f.ContentType = contentType.String
	f.SHA256 = sha.String
	f.AnalysisJSON = analysis.String
	if lastAccess.Valid {
		t := lastAccess.Time
		f.LastAccessedAt = &t
	}
	return &f, nil
}
