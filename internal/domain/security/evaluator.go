package security

import (
	"fmt"
	"strings"
)

const (
	// MaxFileSize is the upload size cap (100MB)
	MaxFileSize = 100 * 1024 * 1024

	// unsafeThreshold is the accumulated risk score at which a file is
	// denied even when no single rule forced the verdict.
	unsafeThreshold = 0.7
)

// unsafeRecommendations are always appended when the final verdict is unsafe,
// regardless of which rule triggered it.
var unsafeRecommendations = []string{
	"File flagged for manual review",
	"Consider scanning with additional security tools",
	"Restrict access to authorized personnel only",
}

// Validate rejects malformed descriptors before they reach the scoring
// pipeline.
func (f FileDescriptor) Validate() error {
	if strings.TrimSpace(f.Filename) == "" {
		return fmt.Errorf("%w: filename is required", ErrInvalidFile)
	}
	if f.Size < 0 {
		return fmt.Errorf("%w: negative size", ErrInvalidFile)
	}
	return nil
}

// Evaluate maps a file descriptor plus an optional analysis result to a
// security verdict. Pure function: no I/O, no shared state, safe to call
// concurrently. Risk accumulates additively and is intentionally not clamped;
// only the >= 0.7 threshold and the forced rules decide Safe. A panic in any
// sub-check fails closed with risk 1.0, never open.
func Evaluate(file FileDescriptor, analysis *ContentAnalysisResult) (v Verdict) {
	defer func() {
		if r := recover(); r != nil {
			v = Verdict{
				Safe:            false,
				RiskScore:       1.0,
				ThreatsDetected: []string{"Security check failed"},
				Recommendations: []string{"Manual review required"},
				Details:         map[string]any{"error": fmt.Sprint(r)},
			}
		}
	}()

	v = Verdict{
		Safe:            true,
		ThreatsDetected: []string{},
		Recommendations: []string{},
		Details:         map[string]any{},
	}

	if analysis != nil {
		if analysis.ThreatLevel == ThreatHigh || analysis.ThreatLevel == ThreatCritical {
			v.Safe = false
			v.RiskScore = 0.9
			v.ThreatsDetected = append(v.ThreatsDetected,
				fmt.Sprintf("High threat level detected: %s", analysis.ThreatLevel))
		}

		if len(analysis.SensitiveDataItems) > 0 {
			v.RiskScore += 0.3
			v.ThreatsDetected = append(v.ThreatsDetected,
				fmt.Sprintf("Sensitive data detected: %d items", len(analysis.SensitiveDataItems)))
			v.Recommendations = append(v.Recommendations, "Consider encrypting this file")
		}

		// Override, not additive: malware always wins over any prior score.
		if len(analysis.MalwareIndicators) > 0 {
			v.Safe = false
			v.RiskScore = 1.0
			v.ThreatsDetected = append(v.ThreatsDetected, "Malware indicators detected")
		}

		if len(analysis.ComplianceIssues) > 0 {
			v.RiskScore += 0.2
			v.ThreatsDetected = append(v.ThreatsDetected,
				fmt.Sprintf("Compliance issues: %v", analysis.ComplianceIssues))
		}
	}

	checks := runFileChecks(file)
	v.Details["file_size_ok"] = checks.sizeOK
	v.Details["extension_valid"] = checks.extensionValid
	v.Details["content_type_matches"] = checks.contentTypeOK
	v.Details["suspicious"] = checks.suspicious

	if checks.suspicious {
		v.RiskScore += 0.4
		v.ThreatsDetected = append(v.ThreatsDetected, "Suspicious file characteristics detected")
	}

	// A combination of medium-severity signals can cross the threshold even
	// when no individual rule forced the verdict.
	if v.RiskScore >= unsafeThreshold {
		v.Safe = false
	}

	if !v.Safe {
		v.Recommendations = append(v.Recommendations, unsafeRecommendations...)
	}

	return v
}

type fileCheckResult struct {
	suspicious     bool
	sizeOK         bool
	extensionValid bool
	contentTypeOK  bool
}

func runFileChecks(f FileDescriptor) fileCheckResult {
	c := fileCheckResult{sizeOK: true, extensionValid: true, contentTypeOK: true}

	if f.Size > MaxFileSize {
		c.sizeOK = false
		c.suspicious = true
	}

	if f.Filename == "" || !strings.Contains(f.Filename, ".") {
		c.extensionValid = false
		c.suspicious = true
	}

	// Executable-like names must carry a matching content type.
	name := strings.ToLower(f.Filename)
	if strings.Contains(name, "exe") && !strings.Contains(f.ContentType, "application/octet-stream") {
		c.contentTypeOK = false
		c.suspicious = true
	}

	return c
}
