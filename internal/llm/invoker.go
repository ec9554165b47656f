package llm

import "context"

// Request is a single completion request.
type Request struct {
	// Content is the prompt text.
	Content string
	// Temperature optionally overrides the transport's sampling
	// temperature. Transports that do not support it ignore the field.
	Temperature *float64
}

// Invocation is the raw result of one provider call. Token counts are
// optional; zero values are filled in from local estimation.
type Invocation struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Invoker is the provider-agnostic LLM invocation primitive. It may fail
// with arbitrary provider-specific errors; transports should wrap coded
// failures in *classify.ProviderError so classification can map them.
// Implementations must be safe for concurrent use.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Invocation, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, req Request) (*Invocation, error)

// Invoke implements Invoker.
func (f InvokerFunc) Invoke(ctx context.Context, req Request) (*Invocation, error) {
	return f(ctx, req)
}
