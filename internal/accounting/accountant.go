// Package accounting persists the usage ledger, aggregates it into
// statistics, and evaluates per-user thresholds for alerting. It
// exclusively owns writes to the usages and usage_alerts tables.
package accounting

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/notewise/aibridge/internal/classify"
	"github.com/notewise/aibridge/internal/models"
	"github.com/notewise/aibridge/internal/pricing"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// writeMaxAttempts bounds ledger insert retries. Writes against a
	// cold connection are retried with linear backoff before being
	// dropped.
	writeMaxAttempts = 3
	// writeRetryBackoff is the linear backoff step between insert
	// attempts.
	writeRetryBackoff = 100 * time.Millisecond

	// writeTimeout bounds a detached ledger insert.
	writeTimeout = 5 * time.Second

	// evaluateTimeout bounds a background threshold evaluation.
	evaluateTimeout = 10 * time.Second
)

// RecordInput describes one attempted LLM operation to be appended to the
// ledger.
type RecordInput struct {
	UserID    string
	NoteID    *string
	Model     string
	Operation string

	InputTokens  int64
	OutputTokens int64

	ProcessingTime time.Duration

	Success bool
	// Failure carries the classified error for failed attempts; only its
	// summary fields are persisted.
	Failure *classify.ClassifiedError
}

// Accountant records usage, computes statistics, and manages thresholds
// and alerts. Construct with New; the zero value is not usable.
type Accountant struct {
	db    *gorm.DB
	rates *pricing.Table
	cache *statsCache
}

// Option customizes an Accountant.
type Option func(*Accountant)

// WithStatsCache enables a short-TTL read cache for aggregate statistics.
// A nil client disables caching.
func WithStatsCache(client RedisClient) Option {
	return func(a *Accountant) {
		a.cache = newStatsCache(client)
	}
}

// New constructs an Accountant over the given connection and rate table.
func New(db *gorm.DB, rates *pricing.Table, opts ...Option) *Accountant {
	a := &Accountant{db: db, rates: rates}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RecordAttempt appends one ledger row for an attempted operation, success
// or failure, then triggers threshold evaluation in the background. The
// call never propagates a failure: persistence errors are retried with
// linear backoff and finally logged and dropped, so the operation that
// produced the record cannot fail because accounting failed.
func (a *Accountant) RecordAttempt(ctx context.Context, input RecordInput) {
	if a == nil || a.db == nil {
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}

	// The ledger write is detached from the caller's context: a client
	// disconnecting mid-request (most likely on the slow failure paths
	// being accounted) must not cancel the insert of its own record.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	totalTokens := input.InputTokens + input.OutputTokens

	var costMicros int64
	if input.Success {
		var ok bool
		costMicros, ok = a.rates.CostMicros(input.Model, input.InputTokens, input.OutputTokens)
		if !ok {
			log.Warnf("accounting: no rate configured for model %q, recording zero cost", input.Model)
		}
	}

	row := models.Usage{
		UserID:           input.UserID,
		NoteID:           input.NoteID,
		Model:            input.Model,
		Operation:        input.Operation,
		InputTokens:      input.InputTokens,
		OutputTokens:     input.OutputTokens,
		TotalTokens:      totalTokens,
		CostMicros:       costMicros,
		ProcessingTimeMs: input.ProcessingTime.Milliseconds(),
		Success:          input.Success,
		CreatedAt:        time.Now(),
	}
	if input.Failure != nil {
		row.Success = false
		row.ErrorMessage = input.Failure.UserMessage
		row.ErrorDetail = marshalFailureDetail(input.Failure)
		// Failed attempts keep zero token counts so error-rate
		// statistics stay accurate without inflating usage.
		row.InputTokens = 0
		row.OutputTokens = 0
		row.TotalTokens = 0
		row.CostMicros = 0
	}

	if errCreate := a.createWithRetry(writeCtx, &row); errCreate != nil {
		log.WithError(errCreate).Warn("accounting: failed to persist usage record")
		return
	}

	a.invalidateUser(writeCtx, input.UserID)

	// Fire-and-forget: alert latency of a few seconds is acceptable,
	// added latency on every accounted operation is not.
	go func(userID string) {
		evalCtx, cancel := context.WithTimeout(context.Background(), evaluateTimeout)
		defer cancel()
		a.EvaluateThresholds(evalCtx, userID)
	}(input.UserID)
}

// createWithRetry inserts a ledger row, retrying with linear backoff when
// the underlying connection may be cold.
func (a *Accountant) createWithRetry(ctx context.Context, row *models.Usage) error {
	var lastErr error
	for attempt := 1; attempt <= writeMaxAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(time.Duration(attempt-1) * writeRetryBackoff)
		}
		if errCreate := a.db.WithContext(ctx).Create(row).Error; errCreate != nil {
			lastErr = errCreate
			log.WithError(errCreate).Debugf("accounting: usage insert attempt %d/%d failed", attempt, writeMaxAttempts)
			continue
		}
		return nil
	}
	return lastErr
}

// failureDetail is the JSON persisted for failed attempts.
type failureDetail struct {
	Kind       classify.Kind `json:"kind"`
	Code       string        `json:"code,omitempty"`
	RawMessage string        `json:"raw_message,omitempty"`
	Retryable  bool          `json:"retryable"`
}

func marshalFailureDetail(failure *classify.ClassifiedError) datatypes.JSON {
	if failure == nil {
		return nil
	}
	payload, errMarshal := json.Marshal(failureDetail{
		Kind:       failure.Kind,
		Code:       failure.Code,
		RawMessage: failure.RawMessage,
		Retryable:  failure.Retryable,
	})
	if errMarshal != nil {
		return nil
	}
	return datatypes.JSON(payload)
}

var errNotInitialized = errors.New("accounting: accountant not initialized")
