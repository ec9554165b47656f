package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/notewise/aibridge/internal/accounting"
	"github.com/notewise/aibridge/internal/classify"
	"github.com/notewise/aibridge/internal/llm"
)

// CompletionHandler serves completion requests through the retrying client
// and records every attempt, success or failure, in the usage ledger.
type CompletionHandler struct {
	client     *llm.Client
	accountant *accounting.Accountant
}

// NewCompletionHandler constructs a CompletionHandler.
func NewCompletionHandler(client *llm.Client, accountant *accounting.Accountant) *CompletionHandler {
	return &CompletionHandler{client: client, accountant: accountant}
}

type completionRequest struct {
	UserID      string   `json:"user_id" binding:"required"`
	NoteID      *string  `json:"note_id"`
	Model       string   `json:"model" binding:"required"`
	Operation   string   `json:"operation"`
	Content     string   `json:"content" binding:"required"`
	Temperature *float64 `json:"temperature"`
}

type completionResponse struct {
	Text             string `json:"text"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}

type completionError struct {
	Kind              classify.Kind `json:"kind"`
	Message           string        `json:"message"`
	RecoveryGuide     []string      `json:"recovery_guide"`
	Retryable         bool          `json:"retryable"`
	RetryAfterSeconds int           `json:"retry_after_seconds,omitempty"`
}

// Create executes one completion request.
func (h *CompletionHandler) Create(c *gin.Context) {
	var req completionRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	operation := strings.TrimSpace(req.Operation)
	if operation == "" {
		operation = "completion"
	}

	start := time.Now()
	result, errExecute := h.client.Execute(c.Request.Context(), llm.Request{
		Content:     req.Content,
		Temperature: req.Temperature,
	})
	elapsed := time.Since(start)

	if errExecute != nil {
		var classified *classify.ClassifiedError
		if !errors.As(errExecute, &classified) {
			classified = classify.Wrap(errExecute, nil)
		}
		h.accountant.RecordAttempt(c.Request.Context(), accounting.RecordInput{
			UserID:         req.UserID,
			NoteID:         req.NoteID,
			Model:          req.Model,
			Operation:      operation,
			ProcessingTime: elapsed,
			Failure:        classified,
		})
		c.JSON(statusForKind(classified.Kind), gin.H{"error": completionError{
			Kind:              classified.Kind,
			Message:           classified.UserMessage,
			RecoveryGuide:     classified.RecoveryGuide,
			Retryable:         classified.Retryable,
			RetryAfterSeconds: classified.RetryAfterSeconds,
		}})
		return
	}

	h.accountant.RecordAttempt(c.Request.Context(), accounting.RecordInput{
		UserID:         req.UserID,
		NoteID:         req.NoteID,
		Model:          req.Model,
		Operation:      operation,
		InputTokens:    int64(result.PromptTokens),
		OutputTokens:   int64(result.CompletionTokens),
		ProcessingTime: elapsed,
		Success:        true,
	})
	c.JSON(http.StatusOK, completionResponse{
		Text:             result.Text,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		TotalTokens:      result.TotalTokens,
		ProcessingTimeMs: elapsed.Milliseconds(),
	})
}

// statusForKind maps a failure kind to the HTTP status returned to callers.
func statusForKind(kind classify.Kind) int {
	switch kind {
	case classify.KindTokenLimit:
		return http.StatusRequestEntityTooLarge
	case classify.KindTimeout:
		return http.StatusGatewayTimeout
	case classify.KindQuotaExceeded:
		return http.StatusTooManyRequests
	case classify.KindAuthError:
		return http.StatusUnauthorized
	case classify.KindAPIError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
