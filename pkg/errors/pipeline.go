package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents a classified processing error.
type ErrorCode string

const (
	ErrTimeout             ErrorCode = "timeout"
	ErrRateLimit           ErrorCode = "rate_limit"
	ErrPlatformUnavailable ErrorCode = "platform_unavailable"
	ErrContextCancelled    ErrorCode = "context_cancelled"
	ErrParseError          ErrorCode = "parse_error"
	ErrEmptyRecording      ErrorCode = "empty_recording"
	ErrDownloadFailed      ErrorCode = "download_failed"
	ErrDuplicateRecording  ErrorCode = "duplicate_recording"
	ErrArchiveWriteFailed  ErrorCode = "archive_write_failed"
	ErrLedgerUnavailable   ErrorCode = "ledger_unavailable"
	ErrProcessingError     ErrorCode = "processing_error"
)

// PipelineError is a structured error for recording-pipeline failures.
type PipelineError struct {
	Code     ErrorCode
	Stage    string
	Message  string
	Duration time.Duration
	Timeout  time.Duration
	Cause    error
}

func (e *PipelineError) Error() string {
	if e.Timeout > 0 && e.Duration > 0 {
		return fmt.Sprintf("%s: %s timed out after %s (limit: %s)", e.Code, e.Stage, e.Duration.Truncate(time.Second), e.Timeout.Truncate(time.Second))
	}
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// ClassifyError inspects an error and returns a *PipelineError with the
// appropriate code. If the error doesn't match any known pattern, it returns
// a PipelineError with ErrProcessingError.
func ClassifyError(err error, stage string) *PipelineError {
	if err == nil {
		return nil
	}

	pe := &PipelineError{
		Stage: stage,
		Cause: err,
	}

	if errors.Is(err, context.DeadlineExceeded) {
		pe.Code = ErrTimeout
		pe.Message = "operation timed out"
		return pe
	}

	if errors.Is(err, context.Canceled) {
		pe.Code = ErrContextCancelled
		pe.Message = "operation cancelled"
		return pe
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	// Empty recording patterns
	if strings.Contains(lower, "empty recording") || strings.Contains(lower, "no recording files") || strings.Contains(lower, "recording is empty") {
		pe.Code = ErrEmptyRecording
		pe.Message = msg
		return pe
	}

	// Ledger dedup patterns
	if strings.Contains(lower, "duplicate") || strings.Contains(lower, "already exists") || strings.Contains(lower, "already archived") {
		pe.Code = ErrDuplicateRecording
		pe.Message = msg
		return pe
	}

	// Transcript/chat parse patterns
	if strings.Contains(lower, "parse") || strings.Contains(lower, "malformed") || strings.Contains(lower, "invalid format") {
		pe.Code = ErrParseError
		pe.Message = msg
		return pe
	}

	// Download patterns
	if strings.Contains(lower, "download") || strings.Contains(lower, "incomplete transfer") {
		pe.Code = ErrDownloadFailed
		pe.Message = msg
		return pe
	}

	// Archive write patterns
	if strings.Contains(lower, "archive write") || strings.Contains(lower, "no space left") || strings.Contains(lower, "read-only file system") {
		pe.Code = ErrArchiveWriteFailed
		pe.Message = msg
		return pe
	}

	// Rate limit patterns
	if strings.Contains(lower, "rate limit") || strings.Contains(lower, "429") || strings.Contains(lower, "too many requests") || strings.Contains(lower, "quota exceeded") {
		pe.Code = ErrRateLimit
		pe.Message = msg
		return pe
	}

	// Platform availability patterns
	if strings.Contains(lower, "connection refused") || strings.Contains(lower, "unavailable") || strings.Contains(lower, "503") || strings.Contains(lower, "no such host") {
		pe.Code = ErrPlatformUnavailable
		pe.Message = msg
		return pe
	}

	pe.Code = ErrProcessingError
	pe.Message = msg
	return pe
}

// IsTimeout returns true if the error is a timeout error.
func IsTimeout(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code == ErrTimeout
	}
	return false
}

// IsErrorRetryable returns true if the error is likely transient and worth
// retrying, based on the ErrorCodeRegistry.
func IsErrorRetryable(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		if info, ok := ErrorCodeRegistry[pe.Code]; ok {
			return info.Retryable
		}
		return false
	}
	return false
}
