package ai

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// LocalCompleter talks to an OpenAI-compatible completion server such as the
// llama.cpp server hosting a local GGUF model. The model's random seed is set
// when that server starts, not per request.
type LocalCompleter struct {
	client *openai.Client
	model  string
}

// NewLocalCompleter builds a completer for baseURL (e.g. http://127.0.0.1:8081/v1).
func NewLocalCompleter(baseURL, apiKey, model string) *LocalCompleter {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &LocalCompleter{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (c *LocalCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	resp, err := c.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:       c.model,
		Prompt:      renderTranscript(req),
		MaxTokens:   req.MaxTokens,
		Temperature: wireTemperature(req.Temperature),
		TopP:        req.TopP,
		Stop:        req.Stop,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Text, nil
}

// wireTemperature keeps an explicit zero on the wire: go-openai omits a zero
// temperature, which the server would replace with its own default.
func wireTemperature(t float32) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}
