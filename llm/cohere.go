package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/verdantiq/climatechat/config"
)

const defaultCohereBaseURL = "https://api.cohere.com"

// cohereProvider talks to the Cohere v2 chat API (Command-A family).
type cohereProvider struct {
	client      *resty.Client
	model       string
	temperature float64
	maxTokens   int
}

func newCohereProvider(cfg config.LLMConfig) (*cohereProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cohere api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("cohere model is required")
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultCohereBaseURL
	}
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")
	return &cohereProvider{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

type cohereMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type cohereChatRequest struct {
	Model       string          `json:"model"`
	Messages    []cohereMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type cohereChatResponse struct {
	Message struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
}

func (p *cohereProvider) GenerateCompletion(ctx context.Context, prompt string) (string, error) {
	return p.Chat(ctx, "", []Message{{Role: "user", Content: prompt}})
}

func (p *cohereProvider) Chat(ctx context.Context, system string, messages []Message) (string, error) {
	req := cohereChatRequest{
		Model:       p.model,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	}
	if system != "" {
		req.Messages = append(req.Messages, cohereMessage{Role: "system", Content: system})
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, cohereMessage{Role: m.Role, Content: m.Content})
	}

	var out cohereChatResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/v2/chat")
	if err != nil {
		return "", fmt.Errorf("cohere chat failed, err: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("cohere chat returned status %d: %s", resp.StatusCode(), resp.String())
	}

	var b strings.Builder
	for _, c := range out.Message.Content {
		if c.Type == "" || c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("cohere chat returned empty message")
	}
	return b.String(), nil
}

func (p *cohereProvider) GetProviderType() string { return "cohere" }
