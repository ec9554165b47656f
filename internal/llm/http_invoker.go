package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/notewise/aibridge/internal/classify"

	log "github.com/sirupsen/logrus"
)

const (
	defaultInvokeTimeout  = 60 * time.Second
	maxInvokeErrorBodyLen = 512
)

// HTTPInvoker calls a completion gateway over a minimal JSON contract:
// POST {input, temperature?} and receive {text, prompt_tokens,
// completion_tokens}. The gateway's own wire protocol to the upstream
// provider is opaque to this module.
type HTTPInvoker struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPInvoker constructs an HTTPInvoker for the given gateway endpoint.
func NewHTTPInvoker(endpoint, apiKey string) *HTTPInvoker {
	return &HTTPInvoker{
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   strings.TrimSpace(apiKey),
		client:   &http.Client{Timeout: defaultInvokeTimeout},
	}
}

type invokeRequest struct {
	Input       string   `json:"input"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type invokeResponse struct {
	Text             string `json:"text"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Error            *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Invoke implements Invoker.
func (i *HTTPInvoker) Invoke(ctx context.Context, req Request) (*Invocation, error) {
	if i == nil || i.endpoint == "" {
		return nil, fmt.Errorf("llm: invoker endpoint not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	body, errMarshal := json.Marshal(invokeRequest{
		Input:       req.Content,
		Temperature: req.Temperature,
	})
	if errMarshal != nil {
		return nil, errMarshal
	}

	httpReq, errReq := http.NewRequestWithContext(ctx, http.MethodPost, i.endpoint, bytes.NewReader(body))
	if errReq != nil {
		return nil, errReq
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if i.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+i.apiKey)
	}

	resp, errDo := i.client.Do(httpReq)
	if errDo != nil {
		return nil, errDo
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Errorf("llm: close response body error: %v", errClose)
		}
	}()

	payload, errRead := io.ReadAll(resp.Body)
	if errRead != nil {
		return nil, errRead
	}

	var parsed invokeResponse
	if errUnmarshal := json.Unmarshal(payload, &parsed); errUnmarshal != nil && resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil, fmt.Errorf("llm: decode response: %w", errUnmarshal)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, invokeError(resp.StatusCode, parsed, payload)
	}
	if parsed.Error != nil {
		return nil, &classify.ProviderError{
			Code:    strings.TrimSpace(parsed.Error.Code),
			Message: strings.TrimSpace(parsed.Error.Message),
		}
	}

	return &Invocation{
		Text:             parsed.Text,
		PromptTokens:     parsed.PromptTokens,
		CompletionTokens: parsed.CompletionTokens,
		TotalTokens:      parsed.TotalTokens,
	}, nil
}

// invokeError builds a ProviderError from a non-2xx gateway response,
// preserving the provider code when the body carried one.
func invokeError(statusCode int, parsed invokeResponse, payload []byte) error {
	code := ""
	message := ""
	if parsed.Error != nil {
		code = strings.TrimSpace(parsed.Error.Code)
		message = strings.TrimSpace(parsed.Error.Message)
	}
	if message == "" {
		message = summarizeBody(payload)
	}
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return &classify.ProviderError{
		Code:    code,
		Message: fmt.Sprintf("status %d: %s", statusCode, message),
	}
}

func summarizeBody(payload []byte) string {
	trimmed := strings.TrimSpace(string(payload))
	if len(trimmed) > maxInvokeErrorBodyLen {
		return trimmed[:maxInvokeErrorBodyLen] + "...(truncated)"
	}
	return trimmed
}
