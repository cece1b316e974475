package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// ChatCompleter runs completions through an eino chat model (Ark or any other BaseChatModel).
type ChatCompleter struct {
	chatModel model.BaseChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewChatCompleter compiles the system+user prompt chain around chatModel
func NewChatCompleter(ctx context.Context, chatModel model.BaseChatModel) (*ChatCompleter, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &ChatCompleter{
		chatModel: chatModel,
		chain:     runnable,
	}, nil
}

// Complete invokes the chain with the request's sampling options
func (c *ChatCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	input := map[string]any{
		"system": req.System,
		"query":  req.User,
	}

	response, err := c.chain.Invoke(ctx, input, compose.WithChatModelOption(chatModelOptions(req)...))
	if err != nil {
		return "", fmt.Errorf("failed to run chat chain: %w", err)
	}
	if response == nil {
		return "", nil
	}
	return response.Content, nil
}

// ChatModel 返回底层的聊天模型
func (c *ChatCompleter) ChatModel() model.BaseChatModel {
	return c.chatModel
}

func chatModelOptions(req CompletionRequest) []model.Option {
	opts := make([]model.Option, 0, 4)
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}
	// 温度总是显式下发，0 表示贪心解码而不是“未设置”
	opts = append(opts, model.WithTemperature(req.Temperature))
	if req.TopP > 0 {
		opts = append(opts, model.WithTopP(req.TopP))
	}
	if len(req.Stop) > 0 {
		opts = append(opts, model.WithStop(req.Stop))
	}
	return opts
}
