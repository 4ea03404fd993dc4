package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"autoblog/config"
)

const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

var ErrEmptyResponse = errors.New("llm: empty response")

// Prompt 는 한 번의 chat completion 요청이다. Model 이 비어 있으면 클라이언트 기본 모델을 쓴다.
type Prompt struct {
	System      string
	User        string
	Model       string
	Temperature float64
	MaxTokens   int64
}

// Completion 은 첫 번째 후보의 텍스트와 토큰 사용량이다.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// Client 는 LLM 공급자 추상화다. 테스트에서는 가짜 구현으로 바꾼다.
type Client interface {
	Complete(ctx context.Context, prompt Prompt) (*Completion, error)
	Provider() string
}

// New 는 llm.provider 설정에 맞는 클라이언트를 만든다.
func New(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm api key missing for provider %q", cfg.Provider)
	}
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI, "":
		return NewOpenAIClient(cfg), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func pickModel(promptModel, fallback string) string {
	if promptModel != "" {
		return promptModel
	}
	return fallback
}
