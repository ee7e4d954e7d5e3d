package agents

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

const claudeMaxTokens = 4096

// NewOpenAIModel builds an OpenAI-compatible chat model. BaseURL covers
// self-hosted gateways; empty means the public API.
func NewOpenAIModel(ctx context.Context, cfg ModelConfig) (model.ToolCallingChatModel, error) {
	m, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		APIKey:  cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("agents.NewOpenAIModel: %w", err)
	}
	return m, nil
}

// NewClaudeModel builds an Anthropic chat model.
func NewClaudeModel(ctx context.Context, cfg ModelConfig) (model.ToolCallingChatModel, error) {
	var baseURL *string
	if cfg.BaseURL != "" {
		baseURL = &cfg.BaseURL
	}
	m, err := claude.NewChatModel(ctx, &claude.Config{
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		BaseURL:   baseURL,
		MaxTokens: claudeMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("agents.NewClaudeModel: %w", err)
	}
	return m, nil
}

// NewGeminiModel builds a Gemini chat model.
func NewGeminiModel(ctx context.Context, cfg ModelConfig) (model.ToolCallingChatModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("agents.NewGeminiModel: %w", err)
	}
	m, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client: client,
		Model:  cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("agents.NewGeminiModel: %w", err)
	}
	return m, nil
}
