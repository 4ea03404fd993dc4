package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"autoblog/config"
)

// GeminiClient 는 google genai SDK 를 사용한다.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, cfg config.LLMConfig) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{client: client, model: cfg.Model}, nil
}

func (c *GeminiClient) Provider() string { return ProviderGemini }

func (c *GeminiClient) Complete(ctx context.Context, prompt Prompt) (*Completion, error) {
	model := pickModel(prompt.Model, c.model)
	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: prompt.System}}},
	}
	if prompt.Temperature > 0 {
		genCfg.Temperature = genai.Ptr(float32(prompt.Temperature))
	}
	if prompt.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(prompt.MaxTokens)
	}

	result, err := c.client.Models.GenerateContent(ctx, model, genai.Text(prompt.User), genCfg)
	if err != nil {
		return nil, err
	}
	text := result.Text()
	if text == "" {
		return nil, ErrEmptyResponse
	}

	out := &Completion{Text: text, Model: model}
	if u := result.UsageMetadata; u != nil {
		out.InputTokens = int64(u.PromptTokenCount)
		out.OutputTokens = int64(u.CandidatesTokenCount)
		out.TotalTokens = int64(u.TotalTokenCount)
	}
	return out, nil
}
