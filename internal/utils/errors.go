// Package utils provides logging, error categorization, and small text
// helpers shared across the embed pipeline.
package utils

import (
	"errors"
	"fmt"
)

// ErrorSeverity represents the severity level of an error.
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns string representation of error severity.
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ErrorCode represents predefined error codes for categorization.
type ErrorCode string

const (
	// Feed source errors
	ErrCodeAuthFailed ErrorCode = "AUTH_FAILED"
	ErrCodeFeedFetch  ErrorCode = "FEED_FETCH"
	ErrCodeFeedParse  ErrorCode = "FEED_PARSE"

	// Resolver errors
	ErrCodeFetchTerminal  ErrorCode = "FETCH_TERMINAL"
	ErrCodeFetchRetryable ErrorCode = "FETCH_RETRYABLE"
	ErrCodeFetchExhausted ErrorCode = "FETCH_EXHAUSTED"
	ErrCodeNoEmbedFound   ErrorCode = "NO_EMBED_FOUND"

	// Artifact errors
	ErrCodeArtifactRead      ErrorCode = "ARTIFACT_READ"
	ErrCodeArtifactWrite     ErrorCode = "ARTIFACT_WRITE"
	ErrCodeArtifactMalformed ErrorCode = "ARTIFACT_MALFORMED"

	// Configuration errors
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrCodeMissingConfig ErrorCode = "MISSING_CONFIG"
)

// CodedError couples an error with a code and severity so callers can decide
// between fatal, per-feed, and soft failure handling.
type CodedError struct {
	Code     ErrorCode
	Severity ErrorSeverity
	Err      error
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	return fmt.Sprintf("[%s] %v", e.Code, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *CodedError) Unwrap() error {
	return e.Err
}

// NewCodedError wraps err with a code and severity.
func NewCodedError(code ErrorCode, severity ErrorSeverity, err error) *CodedError {
	return &CodedError{Code: code, Severity: severity, Err: err}
}

// CodeOf extracts the error code from err, or empty if it carries none.
func CodeOf(err error) ErrorCode {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}
