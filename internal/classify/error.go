package classify

import (
	"errors"
	"fmt"
	"time"
)

// ProviderError is a raw failure reported by the LLM provider, optionally
// carrying a provider error code. Transports wrap non-2xx responses and
// SDK failures in this type so classification can map known codes directly.
type ProviderError struct {
	Code    string // Provider error code, when reported.
	Message string // Provider error message.
	Err     error  // Underlying error, when any.
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" && e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ClassifiedError is a raw failure resolved into the taxonomy: a kind, its
// retry policy, and pre-written user guidance. The raw provider text is
// preserved only in RawMessage and Context for diagnostics.
type ClassifiedError struct {
	Kind              Kind
	Code              string
	RawMessage        string
	UserMessage       string
	RecoveryGuide     []string
	Retryable         bool
	RetryAfterSeconds int
	OccurredAt        time.Time
	Context           map[string]any

	err error
}

// Error implements the error interface with the technical message; the
// user-facing text lives in UserMessage.
func (e *ClassifiedError) Error() string {
	if e == nil {
		return ""
	}
	if e.RawMessage != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.RawMessage)
	}
	return string(e.Kind)
}

// Unwrap returns the wrapped raw error.
func (e *ClassifiedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Wrap classifies a raw error and attaches user guidance and context.
func Wrap(err error, context map[string]any) *ClassifiedError {
	return WrapKind(Classify(err), err, context)
}

// WrapKind builds a ClassifiedError for an already-determined kind,
// bypassing classification. Used for local pre-flight rejections where the
// kind is known before any provider call.
func WrapKind(kind Kind, err error, context map[string]any) *ClassifiedError {
	rawMessage := ""
	code := ""
	if err != nil {
		rawMessage = err.Error()
		var provErr *ProviderError
		if errors.As(err, &provErr) {
			code = provErr.Code
		}
	}

	return &ClassifiedError{
		Kind:              kind,
		Code:              code,
		RawMessage:        rawMessage,
		UserMessage:       UserMessage(kind),
		RecoveryGuide:     RecoveryGuide(kind),
		Retryable:         IsRetryable(kind),
		RetryAfterSeconds: RetryDelaySeconds(kind),
		OccurredAt:        time.Now().UTC(),
		Context:           context,
		err:               err,
	}
}
