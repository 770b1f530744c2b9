package prompt

import "fmt"

// maxSnippet bounds how much file content is sent for analysis.
const maxSnippet = 16 * 1024

// GetSystemPrompt returns the instruction that pins the provider to the
// fixed result shape the evaluator consumes.
func GetSystemPrompt() string {
	return `You are a file content security analyst. Inspect the provided file
content and respond with a single JSON object, no prose, matching exactly:
{
  "file_type": "text|document|image|video|audio|binary",
  "sensitive_data_items": ["<each piece of sensitive data found: SSNs, credit cards, credentials, personal data>"],
  "threat_level": "low|medium|high|critical",
  "malware_indicators": ["<each malware/exploit indicator found>"],
  "compliance_issues": ["<each GDPR/HIPAA/PCI concern found>"],
  "confidence": 0.0
}
threat_level reflects overall danger. confidence is in [0,1]. Use empty
arrays when nothing is found.`
}

// GetUserPrompt formats one analysis request.
func GetUserPrompt(filename, contentType string, content []byte) string {
	snippet := content
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet]
	}
	return fmt.Sprintf("Filename: %s\nContent-Type: %s\n\nContent:\n%s", filename, contentType, snippet)
}
