package security

// ThreatLevel enum as reported by the content analysis provider
type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "low"
	ThreatMedium   ThreatLevel = "medium"
	ThreatHigh     ThreatLevel = "high"
	ThreatCritical ThreatLevel = "critical"
)

// ContentAnalysisResult is the fixed-shape record produced once per analysis
// request by the external content analysis provider. The evaluator treats it
// as immutable for the duration of one check.
type ContentAnalysisResult struct {
	FileType           string      `json:"file_type"`
	SensitiveDataItems []string    `json:"sensitive_data_items"`
	ThreatLevel        ThreatLevel `json:"threat_level"`
	MalwareIndicators  []string    `json:"malware_indicators"`
	ComplianceIssues   []string    `json:"compliance_issues"`
	Confidence         float64     `json:"confidence"`
}

// FileDescriptor describes an upload candidate
type FileDescriptor struct {
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Verdict is the safe/unsafe decision plus supporting evidence for one check.
// Created fresh per check, never mutated after return.
type Verdict struct {
	Safe            bool           `json:"safe"`
	RiskScore       float64        `json:"risk_score"`
	ThreatsDetected []string       `json:"threats_detected"`
	Recommendations []string       `json:"recommendations"`
	Details         map[string]any `json:"details"`
}
