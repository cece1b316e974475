package ai

import "context"

// CompletionRequest carries everything a single text-generation call needs.
type CompletionRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
	TopP        float32
	Stop        []string
}

// Completer is the generative-text capability the responder delegates to.
// Implementations must be safe for concurrent use.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompleterFunc adapts a plain function to Completer.
type CompleterFunc func(ctx context.Context, req CompletionRequest) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return f(ctx, req)
}
