// Package classify maps raw failures from the completion path into a fixed
// taxonomy of error kinds, each with a retry policy and user-facing
// recovery guidance.
package classify

import (
	"errors"
	"strings"
)

// Kind identifies one of the six failure classes.
type Kind string

// Failure classes. Exactly ApiError and Timeout are retryable.
const (
	// KindAPIError marks a transient provider-side failure.
	KindAPIError Kind = "api_error"
	// KindTokenLimit marks a local pre-flight rejection for oversized input.
	KindTokenLimit Kind = "token_limit"
	// KindTimeout marks a timed-out provider call.
	KindTimeout Kind = "timeout"
	// KindQuotaExceeded marks an exhausted quota or rate limit window.
	KindQuotaExceeded Kind = "quota_exceeded"
	// KindAuthError marks missing or rejected credentials.
	KindAuthError Kind = "auth_error"
	// KindUnknown is the catch-all for unanticipated failures.
	KindUnknown Kind = "unknown"
)

// Kinds lists every failure class, in taxonomy order.
var Kinds = []Kind{
	KindAPIError,
	KindTokenLimit,
	KindTimeout,
	KindQuotaExceeded,
	KindAuthError,
	KindUnknown,
}

// Provider error codes with a direct kind mapping.
const (
	// CodeTokenLimitExceeded is reported when input exceeds the provider window.
	CodeTokenLimitExceeded = "TOKEN_LIMIT_EXCEEDED"
	// CodeMissingAPIKey is reported when no credentials were sent.
	CodeMissingAPIKey = "MISSING_API_KEY"
	// CodeInvalidAPIKey is reported when credentials were rejected.
	CodeInvalidAPIKey = "INVALID_API_KEY"
)

// Classify maps a raw error to exactly one Kind. The rules are ordered:
// a provider error code is mapped first, then message substrings, then
// Unknown. Classification is pure and total.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	message := strings.ToLower(err.Error())

	var provErr *ProviderError
	if errors.As(err, &provErr) && strings.TrimSpace(provErr.Code) != "" {
		switch provErr.Code {
		case CodeTokenLimitExceeded:
			return KindTokenLimit
		case CodeMissingAPIKey, CodeInvalidAPIKey:
			return KindAuthError
		}
		if kind, ok := classifyMessage(message); ok {
			return kind
		}
		return KindAPIError
	}

	if kind, ok := classifyMessage(message); ok {
		return kind
	}
	return KindUnknown
}

// classifyMessage applies the ordered substring rules to a lower-cased
// error message.
func classifyMessage(lower string) (Kind, bool) {
	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out"):
		return KindTimeout, true
	case strings.Contains(lower, "quota") || strings.Contains(lower, "rate limit"):
		return KindQuotaExceeded, true
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "forbidden") || strings.Contains(lower, "auth"):
		return KindAuthError, true
	}
	return "", false
}

// IsRetryable reports whether a kind may be retried automatically.
// True for exactly ApiError and Timeout.
func IsRetryable(kind Kind) bool {
	return kind == KindAPIError || kind == KindTimeout
}

// RetryDelaySeconds returns the recommended delay before retrying a kind,
// or 0 when no automatic retry is meaningful.
func RetryDelaySeconds(kind Kind) int {
	switch kind {
	case KindAPIError:
		return 5
	case KindTimeout:
		return 10
	case KindQuotaExceeded:
		return 3600
	default:
		return 0
	}
}
