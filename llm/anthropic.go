package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"autoblog/config"
)

// AnthropicClient 는 anthropic-sdk-go 의 Messages API 를 사용한다.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func NewAnthropicClient(cfg config.LLMConfig) *AnthropicClient {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

func (c *AnthropicClient) Provider() string { return ProviderAnthropic }

func (c *AnthropicClient) Complete(ctx context.Context, prompt Prompt) (*Completion, error) {
	maxTokens := prompt.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	model := pickModel(prompt.Model, c.model)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		System:    []anthropic.TextBlockParam{{Text: prompt.System}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.User)),
		},
	}
	if prompt.Temperature > 0 {
		params.Temperature = anthropic.Float(prompt.Temperature)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, block := range resp.Content {
		b.WriteString(block.Text)
	}
	if b.Len() == 0 {
		return nil, ErrEmptyResponse
	}
	return &Completion{
		Text:         b.String(),
		Model:        string(resp.Model),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}
