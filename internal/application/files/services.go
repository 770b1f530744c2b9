package files

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/fileguard/internal/application"
	appsec "github.com/bryanwahyu/fileguard/internal/application/security"
	"github.com/bryanwahyu/fileguard/internal/domain/activity"
	"github.com/bryanwahyu/fileguard/internal/domain/ai"
	domain "github.com/bryanwahyu/fileguard/internal/domain/files"
	domsec "github.com/bryanwahyu/fileguard/internal/domain/security"
	"github.com/bryanwahyu/fileguard/internal/domain/threats"
)

const downloadExpiry = time.Hour

// Service implements the file-management use-cases. Every upload is gated
// through the security pipeline before any byte reaches the object store.
type Service struct {
	Repo     domain.Repository
	Objects  domain.ObjectStore
	Analyzer ai.Client // optional; uploads proceed on file checks alone without it
	Security *appsec.Service
	Clock    application.Clock
	Log      *zap.Logger
}

// UploadCommand carries one upload request.
type UploadCommand struct {
	OwnerID     string
	Filename    string
	ContentType string
	Content     io.Reader
	IPAddress   string
	UserAgent   string
}

// UploadResult is returned for both admitted and denied uploads so the
// caller can surface the verdict's details and recommendations.
type UploadResult struct {
	File     *domain.File      `json:"file,omitempty"`
	Verdict  domsec.Verdict    `json:"verdict"`
	Findings []threats.Finding `json:"findings,omitempty"`
}

// Upload analyzes, scores and (when safe) stores one file. A denied upload
// returns security.ErrRejected together with the verdict.
func (s *Service) Upload(ctx context.Context, cmd UploadCommand) (*UploadResult, error) {
	data, err := io.ReadAll(io.LimitReader(cmd.Content, domsec.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > domsec.MaxFileSize {
		// Never truncate-and-store: the hash and verdict would describe
		// bytes the client did not send.
		return nil, domsec.ErrFileTooLarge
	}

	desc := domsec.FileDescriptor{
		Filename:    cmd.Filename,
		Size:        int64(len(data)),
		ContentType: cmd.ContentType,
	}

	analysis := s.analyze(ctx, cmd.Filename, cmd.ContentType, data)

	verdict, err := s.Security.CheckUpload(desc, analysis)
	if err != nil {
		return nil, err
	}

	// The upload attempt is logged whether or not it is admitted.
	findings := s.Security.RecordActivity(ctx, cmd.OwnerID, activity.TypeFileUpload, map[string]any{
		"filename":   cmd.Filename,
		"size":       desc.Size,
		"safe":       verdict.Safe,
		"ip_address": cmd.IPAddress,
		"user_agent": cmd.UserAgent,
	})

	res := &UploadResult{Verdict: verdict, Findings: findings}
	if !verdict.Safe {
		return res, domsec.ErrRejected
	}

	id := uuid.New().String()
	key := fmt.Sprintf("users/%s/files/%s%s", cmd.OwnerID, id, filepath.Ext(cmd.Filename))
	if err := s.Objects.Put(ctx, key, bytes.NewReader(data), desc.Size, cmd.ContentType); err != nil {
		return nil, fmt.Errorf("store object: %w", err)
	}

	sum := sha256.Sum256(data)
	f := &domain.File{
		ID:             domain.FileID(id),
		OwnerID:        cmd.OwnerID,
		Filename:       cmd.Filename,
		ObjectKey:      key,
		Size:           desc.Size,
		ContentType:    cmd.ContentType,
		SHA256:         hex.EncodeToString(sum[:]),
		UploadedAt:     s.Clock.Now().UTC(),
		SecurityStatus: domain.StatusSafe,
		AnalysisJSON:   marshalAnalysis(analysis),
	}
	if err := s.Repo.Save(ctx, f); err != nil {
		return nil, fmt.Errorf("save metadata: %w", err)
	}

	res.File = f
	return res, nil
}

// DownloadResult carries a presigned URL, not bytes; the client fetches the
// object directly from storage.
type DownloadResult struct {
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

func (s *Service) Download(ctx context.Context, ownerID string, id domain.FileID, ip, userAgent string) (*DownloadResult, error) {
	f, err := s.Repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	url, err := s.Objects.PresignGet(ctx, f.ObjectKey, f.Filename, downloadExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign download: %w", err)
	}

	if err := s.Repo.TouchAccess(ctx, ownerID, id, s.Clock.Now().UTC()); err != nil {
		s.Log.Warn("access stats not updated", zap.Error(err), zap.String("file_id", string(id)))
	}

	s.Security.RecordActivity(ctx, ownerID, activity.TypeFileAccess, map[string]any{
		"file_id":    string(id),
		"ip_address": ip,
		"user_agent": userAgent,
	})

	return &DownloadResult{
		DownloadURL: url,
		Filename:    f.Filename,
		ContentType: f.ContentType,
		Size:        f.Size,
	}, nil
}

func (s *Service) Get(ctx context.Context, ownerID string, id domain.FileID) (*domain.File, error) {
	return s.Repo.Get(ctx, ownerID, id)
}

func (s *Service) List(ctx context.Context, ownerID string) ([]*domain.File, error) {
	return s.Repo.ListByOwner(ctx, ownerID)
}

func (s *Service) Delete(ctx context.Context, ownerID string, id domain.FileID, ip, userAgent string) error {
	f, err := s.Repo.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if err := s.Objects.Remove(ctx, f.ObjectKey); err != nil {
		// Metadata delete proceeds; an orphaned object is recoverable,
		// a dangling metadata row is not.
		s.Log.Warn("object removal failed", zap.Error(err), zap.String("key", f.ObjectKey))
	}
	if err := s.Repo.Delete(ctx, ownerID, id); err != nil {
		return err
	}

	s.Security.RecordActivity(ctx, ownerID, activity.TypeFileDelete, map[string]any{
		"file_id":    string(id),
		"filename":   f.Filename,
		"ip_address": ip,
		"user_agent": userAgent,
	})
	return nil
}

// Reanalyze re-runs content analysis over a stored object and refreshes the
// file's security status.
func (s *Service) Reanalyze(ctx context.Context, ownerID string, id domain.FileID) (*domsec.ContentAnalysisResult, error) {
	if s.Analyzer == nil {
		return nil, fmt.Errorf("content analysis is not configured")
	}

	f, err := s.Repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	rc, err := s.Objects.Get(ctx, f.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("fetch object: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, domsec.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}

	analysis, err := s.Analyzer.Analyze(ctx, f.Filename, f.ContentType, data)
	if err != nil {
		return nil, err
	}

	verdict := domsec.Evaluate(domsec.FileDescriptor{
		Filename:    f.Filename,
		Size:        f.Size,
		ContentType: f.ContentType,
	}, analysis)

	f.AnalysisJSON = marshalAnalysis(analysis)
	if verdict.Safe {
		f.SecurityStatus = domain.StatusSafe
	} else {
		f.SecurityStatus = domain.StatusFlagged
	}
	if err := s.Repo.Save(ctx, f); err != nil {
		s.Log.Warn("analysis result not persisted", zap.Error(err), zap.String("file_id", string(id)))
	}

	return analysis, nil
}

// analyze runs the provider when configured. Provider failures are logged and
// the upload falls through to file-characteristic checks alone; quota errors
// included, since a provider outage must not take uploads down with it.
func (s *Service) analyze(ctx context.Context, filename, contentType string, data []byte) *domsec.ContentAnalysisResult {
	if s.Analyzer == nil {
		return nil
	}
	analysis, err := s.Analyzer.Analyze(ctx, filename, contentType, data)
	if err != nil {
		s.Log.Warn("content analysis unavailable", zap.Error(err), zap.String("filename", filename))
		return nil
	}
	return analysis
}

func marshalAnalysis(a *domsec.ContentAnalysisResult) string {
	if a == nil {
		return ""
	}
	b, err := json.Marshal(a)
	if err != nil {
		return ""
	}
	return string(b)
}
