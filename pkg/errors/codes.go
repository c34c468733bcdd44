package errors

// ErrorCodeInfo contains metadata about an error code.
type ErrorCodeInfo struct {
	Code            ErrorCode
	Retryable       bool
	Description     string
	SuggestedAction string
}

// ErrorCodeRegistry maps error codes to their metadata.
var ErrorCodeRegistry = map[ErrorCode]ErrorCodeInfo{
	ErrTimeout: {
		Code:            ErrTimeout,
		Retryable:       true,
		Description:     "Operation exceeded time limit",
		SuggestedAction: "Check timeout configuration in the pipeline section of the config file",
	},
	ErrRateLimit: {
		Code:            ErrRateLimit,
		Retryable:       true,
		Description:     "Platform API rate limit exceeded",
		SuggestedAction: "Wait and retry automatically, or lower ingest concurrency",
	},
	ErrPlatformUnavailable: {
		Code:            ErrPlatformUnavailable,
		Retryable:       true,
		Description:     "Recording platform API unreachable or returning errors",
		SuggestedAction: "Check platform status and API credentials: sessionarc ingest api --dry-run",
	},
	ErrContextCancelled: {
		Code:            ErrContextCancelled,
		Retryable:       false,
		Description:     "Operation cancelled by user or system",
		SuggestedAction: "Check if cancellation was intentional, or investigate upstream cancellation",
	},
	ErrParseError: {
		Code:            ErrParseError,
		Retryable:       false,
		Description:     "Transcript or chat log parsing failed (malformed structure)",
		SuggestedAction: "Inspect the raw transcript file alongside the recording",
	},
	ErrEmptyRecording: {
		Code:            ErrEmptyRecording,
		Retryable:       false,
		Description:     "Recording has no downloadable files",
		SuggestedAction: "Verify the recording on the platform: sessionarc ledger show <canonical-name>",
	},
	ErrDownloadFailed: {
		Code:            ErrDownloadFailed,
		Retryable:       true,
		Description:     "Recording file download failed or was incomplete",
		SuggestedAction: "Retry the download: sessionarc process --retry-failed",
	},
	ErrDuplicateRecording: {
		Code:            ErrDuplicateRecording,
		Retryable:       false,
		Description:     "Recording already archived under the same canonical name",
		SuggestedAction: "This is expected for re-delivered recordings; no action needed",
	},
	ErrArchiveWriteFailed: {
		Code:            ErrArchiveWriteFailed,
		Retryable:       true,
		Description:     "Writing to the archive root failed",
		SuggestedAction: "Check disk space and permissions on the archive root",
	},
	ErrLedgerUnavailable: {
		Code:            ErrLedgerUnavailable,
		Retryable:       true,
		Description:     "Ledger database unreachable",
		SuggestedAction: "Check the database DSN in config and database availability",
	},
	ErrProcessingError: {
		Code:            ErrProcessingError,
		Retryable:       false,
		Description:     "Unclassified processing error",
		SuggestedAction: "Check logs: sessionarc ledger show <canonical-name>",
	},
}

// IsRetryable returns true if the given error code represents a transient, retryable error.
func IsRetryable(code ErrorCode) bool {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Retryable
	}
	return false
}

// GetSuggestedAction returns the suggested action for the given error code.
func GetSuggestedAction(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.SuggestedAction
	}
	return "Check logs for more details"
}

// GetDescription returns the human-readable description for the given error code.
func GetDescription(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Description
	}
	return "Unknown error"
}
