package middleware

import (
	"fmt"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities

var (
	userIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	fileIDPattern = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)
)

// blockedExtensions are never accepted regardless of analysis outcome
var blockedExtensions = map[string]bool{
	"exe": true,
	"bat": true,
	"cmd": true,
}

// ValidateUserID validates user id format
func ValidateUserID(userID string) error {
	if userID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}
	if !userIDPattern.MatchString(userID) {
		return fmt.Errorf("invalid user ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateFileID validates file id format (UUID)
func ValidateFileID(fileID string) error {
	if fileID == "" {
		return fmt.Errorf("file ID cannot be empty")
	}
	if !fileIDPattern.MatchString(strings.ToLower(fileID)) {
		return fmt.Errorf("invalid file ID format")
	}
	return nil
}

// ValidateFilename rejects path tricks and blocked extensions up front; the
// risk evaluator still scores everything that passes.
func ValidateFilename(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return fmt.Errorf("invalid characters in filename")
	}
	if strings.Contains(name, "\x00") {
		return fmt.Errorf("invalid characters in filename")
	}

	if i := strings.LastIndex(name, "."); i >= 0 {
		ext := strings.ToLower(name[i+1:])
		if blockedExtensions[ext] {
			return fmt.Errorf("file extension .%s is not allowed", ext)
		}
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 100 // default
	}
	if limit > 1000 {
		return 1000 // ledger retention cap
	}
	return limit
}
