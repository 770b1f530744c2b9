package ai

import (
	"context"

	"github.com/bryanwahyu/fileguard/internal/domain/security"
)

// Client is the black-box content analysis provider. It produces one
// fixed-shape result per request; the classifiers behind it are not part of
// this system.
type Client interface {
	Analyze(ctx context.Context, filename, contentType string, content []byte) (*security.ContentAnalysisResult, error)
}
