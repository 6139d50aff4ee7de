package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/verdantiq/climatechat/config"
)

// openaiProvider serves any OpenAI-compatible endpoint. The Nova models are
// reached through such a gateway, so "nova" resolves here.
type openaiProvider struct {
	client       openai.Client
	providerType string
	model        string
	temperature  float64
	maxTokens    int
}

func newOpenAIProvider(cfg config.LLMConfig) (*openaiProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &openaiProvider{
		client:       openai.NewClient(opts...),
		providerType: cfg.Provider,
		model:        cfg.Model,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
	}, nil
}

func (p *openaiProvider) GenerateCompletion(ctx context.Context, prompt string) (string, error) {
	return p.Chat(ctx, "", []Message{{Role: "user", Content: prompt}})
}

func (p *openaiProvider) Chat(ctx context.Context, system string, messages []Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1),
	}
	if p.temperature > 0 {
		params.Temperature = openai.Float(p.temperature)
	}
	if p.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.maxTokens))
	}
	if system != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(system))
	}
	for _, m := range messages {
		switch m.Role {
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed, err: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *openaiProvider) GetProviderType() string {
	if p.providerType != "" {
		return p.providerType
	}
	return "openai"
}
