package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/notewise/aibridge/internal/classify"
)

func TestHTTPInvokerSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		var req invokeRequest
		if errDecode := json.NewDecoder(r.Body).Decode(&req); errDecode != nil {
			t.Errorf("decode request: %v", errDecode)
		}
		if req.Input != "hello" {
			t.Errorf("input = %q, want hello", req.Input)
		}
		_ = json.NewEncoder(w).Encode(invokeResponse{
			Text:             "world",
			PromptTokens:     2,
			CompletionTokens: 1,
			TotalTokens:      3,
		})
	}))
	defer server.Close()

	invoker := NewHTTPInvoker(server.URL, "secret")
	invocation, errInvoke := invoker.Invoke(context.Background(), Request{Content: "hello"})
	if errInvoke != nil {
		t.Fatalf("invoke: %v", errInvoke)
	}
	if invocation.Text != "world" || invocation.TotalTokens != 3 {
		t.Fatalf("unexpected invocation: %+v", invocation)
	}
}

func TestHTTPInvokerCodedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": classify.CodeInvalidAPIKey, "message": "key revoked"},
		})
	}))
	defer server.Close()

	invoker := NewHTTPInvoker(server.URL, "secret")
	_, errInvoke := invoker.Invoke(context.Background(), Request{Content: "hello"})
	if errInvoke == nil {
		t.Fatalf("expected an error")
	}

	var provErr *classify.ProviderError
	if !errors.As(errInvoke, &provErr) {
		t.Fatalf("error is not a provider error: %v", errInvoke)
	}
	if provErr.Code != classify.CodeInvalidAPIKey {
		t.Fatalf("Code = %q, want %q", provErr.Code, classify.CodeInvalidAPIKey)
	}
	if got := classify.Classify(errInvoke); got != classify.KindAuthError {
		t.Fatalf("Classify = %s, want %s", got, classify.KindAuthError)
	}
}

func TestHTTPInvokerInBodyError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "UPSTREAM_DOWN", "message": "backend unavailable"},
		})
	}))
	defer server.Close()

	invoker := NewHTTPInvoker(server.URL, "")
	_, errInvoke := invoker.Invoke(context.Background(), Request{Content: "hello"})

	var provErr *classify.ProviderError
	if !errors.As(errInvoke, &provErr) {
		t.Fatalf("error is not a provider error: %v", errInvoke)
	}
	if provErr.Code != "UPSTREAM_DOWN" {
		t.Fatalf("Code = %q, want UPSTREAM_DOWN", provErr.Code)
	}
}

func TestHTTPInvokerUnconfiguredEndpoint(t *testing.T) {
	invoker := NewHTTPInvoker("", "")
	if _, errInvoke := invoker.Invoke(context.Background(), Request{Content: "hello"}); errInvoke == nil {
		t.Fatalf("expected an error for a missing endpoint")
	}
}
