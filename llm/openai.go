package llm

import (
	"context"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"autoblog/config"
)

// OpenAIClient 는 openai-go SDK 의 chat completions 를 사용한다.
type OpenAIClient struct {
	client openai.Client
	model  string
}

func NewOpenAIClient(cfg config.LLMConfig) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIClient{client: openai.NewClient(opts...), model: cfg.Model}
}

func (c *OpenAIClient) Provider() string { return ProviderOpenAI }

func (c *OpenAIClient) Complete(ctx context.Context, prompt Prompt) (*Completion, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(pickModel(prompt.Model, c.model)),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
	}
	if prompt.Temperature > 0 {
		params.Temperature = openai.Float(prompt.Temperature)
	}
	if prompt.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(prompt.MaxTokens)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, ErrEmptyResponse
	}
	return &Completion{
		Text:         resp.Choices[0].Message.Content,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}
