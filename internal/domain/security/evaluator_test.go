package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pdf(size int64) FileDescriptor {
	return FileDescriptor{Filename: "report.pdf", Size: size, ContentType: "application/pdf"}
}

func TestEvaluateCleanFile(t *testing.T) {
	v := Evaluate(pdf(1024), &ContentAnalysisResult{ThreatLevel: ThreatLow})

	assert.True(t, v.Safe)
	assert.Equal(t, 0.0, v.RiskScore)
	assert.Empty(t, v.ThreatsDetected)
	assert.Empty(t, v.Recommendations)
	assert.Equal(t, true, v.Details["file_size_ok"])
	assert.Equal(t, true, v.Details["extension_valid"])
	assert.Equal(t, false, v.Details["suspicious"])
}

func TestEvaluateNilAnalysis(t *testing.T) {
	// Without analysis only the file-characteristic checks run.
	v := Evaluate(pdf(1024), nil)
	assert.True(t, v.Safe)
	assert.Equal(t, 0.0, v.RiskScore)
}

func TestEvaluateMalwareOverridesEverything(t *testing.T) {
	v := Evaluate(pdf(1024), &ContentAnalysisResult{
		ThreatLevel:        ThreatCritical,
		SensitiveDataItems: []string{"ssn"},
		MalwareIndicators:  []string{"eicar"},
	})

	assert.False(t, v.Safe)
	assert.Equal(t, 1.0, v.RiskScore)
	assert.Contains(t, v.ThreatsDetected, "Malware indicators detected")
}

func TestEvaluateHighThreatLevel(t *testing.T) {
	for _, lvl := range []ThreatLevel{ThreatHigh, ThreatCritical} {
		v := Evaluate(pdf(1024), &ContentAnalysisResult{ThreatLevel: lvl})
		assert.False(t, v.Safe, "level %s", lvl)
		assert.Equal(t, 0.9, v.RiskScore)
	}
}

func TestEvaluateSensitiveDataAloneStaysSafe(t *testing.T) {
	v := Evaluate(pdf(1024), &ContentAnalysisResult{
		ThreatLevel:        ThreatLow,
		SensitiveDataItems: []string{"email", "phone"},
	})

	assert.True(t, v.Safe)
	assert.InDelta(t, 0.3, v.RiskScore, 1e-9)
	assert.Contains(t, v.Recommendations, "Consider encrypting this file")
}

func TestEvaluateAccumulationCrossesThreshold(t *testing.T) {
	// 0.3 sensitive + 0.2 compliance + 0.4 suspicious name = 0.9 >= 0.7
	file := FileDescriptor{Filename: "tool.exe.pdf", Size: 1024, ContentType: "application/pdf"}
	v := Evaluate(file, &ContentAnalysisResult{
		ThreatLevel:        ThreatLow,
		SensitiveDataItems: []string{"ssn"},
		ComplianceIssues:   []string{"gdpr"},
	})

	assert.False(t, v.Safe)
	assert.InDelta(t, 0.9, v.RiskScore, 1e-9)
	for _, rec := range unsafeRecommendations {
		assert.Contains(t, v.Recommendations, rec)
	}
}

func TestEvaluateSuspiciousFileChecks(t *testing.T) {
	tests := []struct {
		name       string
		file       FileDescriptor
		suspicious bool
	}{
		{"oversized", pdf(MaxFileSize + 1), true},
		{"no extension", FileDescriptor{Filename: "README", Size: 10}, true},
		{"exe without octet-stream", FileDescriptor{Filename: "setup.exe", Size: 10, ContentType: "text/plain"}, true},
		{"exe with octet-stream", FileDescriptor{Filename: "setup.exe", Size: 10, ContentType: "application/octet-stream"}, false},
		{"ordinary pdf", pdf(10), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := Evaluate(tc.file, nil)
			assert.Equal(t, tc.suspicious, v.Details["suspicious"])
			if tc.suspicious {
				assert.InDelta(t, 0.4, v.RiskScore, 1e-9)
				assert.Contains(t, v.ThreatsDetected, "Suspicious file characteristics detected")
			}
		})
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	file := pdf(2048)
	analysis := &ContentAnalysisResult{
		ThreatLevel:        ThreatMedium,
		SensitiveDataItems: []string{"ssn"},
		ComplianceIssues:   []string{"hipaa"},
	}

	first := Evaluate(file, analysis)
	second := Evaluate(file, analysis)
	assert.Equal(t, first, second)
}

func TestValidateDescriptor(t *testing.T) {
	err := FileDescriptor{Filename: "  ", Size: 1}.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFile)

	err = FileDescriptor{Filename: "a.txt", Size: -1}.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFile)

	assert.NoError(t, FileDescriptor{Filename: "a.txt", Size: 0}.Validate())
}

func TestEvaluateUnsafeRecommendationsAppendedOnce(t *testing.T) {
	v := Evaluate(pdf(1024), &ContentAnalysisResult{MalwareIndicators: []string{"x"}})

	joined := strings.Join(v.Recommendations, "|")
	assert.Equal(t, 1, strings.Count(joined, unsafeRecommendations[0]))
}
