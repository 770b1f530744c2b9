package security

import "errors"

// ErrInvalidFile indicates a malformed file descriptor that never reaches the
// scoring pipeline.
var ErrInvalidFile = errors.New("invalid file descriptor")

// ErrRejected indicates the upload was denied by the security verdict.
var ErrRejected = errors.New("file rejected by security policy")

// ErrFileTooLarge indicates an upload payload over MaxFileSize. Oversized
// streams are refused outright; the evaluator's size check only scores
// descriptors for callers that never see the bytes.
var ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
