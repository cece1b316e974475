package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/zhouzirui/heartchat/backend/internal/metrics"
)

// Replies returned instead of model output when generation cannot produce usable text.
const (
	UnavailableReply = "😞 Sorry, the AI model is not available right now."
	IncoherentReply  = "🧠 Sorry, I couldn't generate a coherent AI response."
	FailureReply     = "🤯 Sorry, I encountered an issue generating a response."
)

// Options tune sampling and the truncation heuristic.
type Options struct {
	MaxTokens   int
	Temperature float32
	TopP        float32
	// Timeout bounds the whole generation, retry included. Zero disables it.
	Timeout time.Duration
	// MinLength is the rune count below which an unpunctuated answer counts as truncated.
	MinLength int
}

// DefaultOptions mirrors the sampling the local chat model was tuned with.
func DefaultOptions() Options {
	return Options{
		MaxTokens:   2048,
		Temperature: 0.6,
		TopP:        0.9,
		Timeout:     180 * time.Second,
		MinLength:   50,
	}
}

// Responder produces open-ended replies through a Completer.
type Responder struct {
	completer Completer
	opts      Options
	logger    *zap.Logger
	metrics   *metrics.Collector
}

// NewResponder creates a responder. completer may be nil, in which case every
// call returns UnavailableReply.
func NewResponder(completer Completer, opts Options, logger *zap.Logger, collector *metrics.Collector) *Responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultOptions()
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaults.MaxTokens
	}
	if opts.MinLength <= 0 {
		opts.MinLength = defaults.MinLength
	}
	return &Responder{
		completer: completer,
		opts:      opts,
		logger:    logger.Named("ai"),
		metrics:   collector,
	}
}

// Available reports whether a generative capability is configured.
func (r *Responder) Available() bool {
	return r != nil && r.completer != nil
}

// Generate always returns displayable text; failures are logged and replaced by a fixed apology.
func (r *Responder) Generate(ctx context.Context, text string) (reply string) {
	if !r.Available() {
		if r != nil {
			r.logger.Warn("model not loaded, cannot generate response")
			r.metrics.GenerationFailed("unavailable")
		}
		return UnavailableReply
	}

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("completer panicked", zap.Any("panic", rec))
			r.metrics.GenerationFailed("panic")
			reply = FailureReply
		}
		r.metrics.ObserveGeneration(time.Since(start))
	}()

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	out, err := r.complete(ctx, standardPrompt, text)
	if err != nil {
		return r.fail(err)
	}

	if looksTruncated(out, r.opts.MinLength) {
		r.logger.Info("short or incomplete response, regenerating with detailed prompt",
			zap.Int("runes", utf8.RuneCountInString(out)))
		r.metrics.GenerationRetried()

		out, err = r.complete(ctx, detailedPrompt, text)
		if err != nil {
			return r.fail(err)
		}
	}

	if out == "" {
		r.metrics.GenerationFailed("empty")
		return IncoherentReply
	}
	return out
}

type completion struct {
	out      string
	err      error
	panicked bool
	panicVal any
}

func (r *Responder) complete(ctx context.Context, tmpl PromptTemplate, text string) (string, error) {
	req := CompletionRequest{
		System:      tmpl.SystemPrompt(),
		User:        text,
		MaxTokens:   r.opts.MaxTokens,
		Temperature: r.opts.Temperature,
		TopP:        r.opts.TopP,
		Stop:        append([]string(nil), stopMarkers...),
	}

	// buffered so a completer that ignores ctx can still finish after we stop waiting
	done := make(chan completion, 1)
	go func() {
		var res completion
		defer func() {
			if rec := recover(); rec != nil {
				res = completion{panicked: true, panicVal: rec}
			}
			done <- res
		}()
		res.out, res.err = r.completer.Complete(ctx, req)
	}()

	var res completion
	select {
	case res = <-done:
	case <-ctx.Done():
		return "", fmt.Errorf("completion abandoned: %w", ctx.Err())
	}

	if res.panicked {
		panic(res.panicVal)
	}
	if res.err != nil {
		return "", res.err
	}
	// a late answer is still a failure
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", fmt.Errorf("completion finished after cancellation: %w", ctxErr)
	}
	return strings.TrimSpace(res.out), nil
}

func (r *Responder) fail(err error) string {
	reason := "error"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "timeout"
	}
	r.logger.Error("error during response generation", zap.String("reason", reason), zap.Error(err))
	r.metrics.GenerationFailed(reason)
	return FailureReply
}

// looksTruncated treats short output without terminal punctuation as cut off.
func looksTruncated(text string, minLength int) bool {
	if utf8.RuneCountInString(text) >= minLength {
		return false
	}
	return !strings.HasSuffix(text, ".") && !strings.HasSuffix(text, "!") && !strings.HasSuffix(text, "?")
}
