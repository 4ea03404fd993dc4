package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/llm"
	"autoblog/logger"
	"autoblog/metrics"
	"autoblog/models"
	"autoblog/quota"
)

var (
	ErrGenerationFailed = errors.New("generation failed")
	ErrQuotaExceeded    = errors.New("llm daily quota exceeded")
)

// Settings 는 테넌트 > 시스템 > config 순으로 결정된 생성 설정이다.
type Settings struct {
	MinWords    int
	MaxWords    int
	Model       string
	Temperature float64
	MaxTokens   int64
	Language    string
}

// Draft 는 저장 전의 생성 결과다.
type Draft struct {
	Title           string
	Slug            string
	Content         string
	Excerpt         string
	MetaDescription string
	WordCount       int
	ReadingTime     int
	Provider        string
	Model           string
}

type RecentPostSource interface {
	RecentByTopic(ctx context.Context, ownerID, topicID primitive.ObjectID, limit int) ([]models.Post, error)
}

type AILogSink interface {
	Insert(ctx context.Context, log models.AILog) error
}

type Generator struct {
	client  llm.Client
	posts   RecentPostSource
	logs    AILogSink
	quota   *quota.Limiter
	refs    ReferenceSource
	metrics *metrics.Collector
	slugger *Slugger
	timeout time.Duration
	recent  int
}

type Option func(*Generator)

func WithQuota(l *quota.Limiter) Option       { return func(g *Generator) { g.quota = l } }
func WithAILogSink(s AILogSink) Option        { return func(g *Generator) { g.logs = s } }
func WithReferences(r ReferenceSource) Option { return func(g *Generator) { g.refs = r } }
func WithMetrics(c *metrics.Collector) Option { return func(g *Generator) { g.metrics = c } }
func WithTimeout(d time.Duration) Option      { return func(g *Generator) { g.timeout = d } }
func WithRecentPosts(n int) Option            { return func(g *Generator) { g.recent = n } }
func WithSlugger(s *Slugger) Option           { return func(g *Generator) { g.slugger = s } }

func New(client llm.Client, posts RecentPostSource, opts ...Option) *Generator {
	g := &Generator{
		client:  client,
		posts:   posts,
		slugger: NewSlugger(),
		timeout: 2 * time.Minute,
		recent:  5,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Provider() string { return g.client.Provider() }

// Slug 는 저장 시 slug 충돌로 재시도할 때 새 slug 를 만든다.
func (g *Generator) Slug(title string) string { return g.slugger.Make(title) }

// Generate 는 주제 하나에 대해 LLM 을 한 번 호출하고 응답을 Draft 로 변환한다.
// 재시도는 하지 않으며 모든 실패는 ErrGenerationFailed 로 감싼다.
func (g *Generator) Generate(ctx context.Context, topic *models.Topic, s Settings) (*Draft, error) {
	recent, err := g.posts.RecentByTopic(ctx, topic.OwnerID, topic.ID, g.recent)
	if err != nil {
		return nil, fmt.Errorf("%w: load recent posts: %w", ErrGenerationFailed, err)
	}

	pc := PromptContext{
		RecentPosts: recent,
		MinWords:    s.MinWords,
		MaxWords:    s.MaxWords,
		Language:    s.Language,
	}
	if g.refs != nil {
		pc.References = g.refs.Collect(ctx, topic)
	}
	prompt := llm.Prompt{
		System:      SystemPrompt(topic.Name, pc),
		User:        UserPrompt(topic, pc),
		Model:       s.Model,
		Temperature: s.Temperature,
		MaxTokens:   s.MaxTokens,
	}

	ok, err := g.quota.WaitAndReserve(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, ErrQuotaExceeded)
	}

	completion, err := g.complete(ctx, topic, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	content := completion.Text
	title := ExtractTitle(content, topic.Name)
	words := CountWords(content)
	return &Draft{
		Title:           title,
		Slug:            g.slugger.Make(title),
		Content:         content,
		Excerpt:         Excerpt(content),
		MetaDescription: MetaDescription(content),
		WordCount:       words,
		ReadingTime:     ReadingTime(words),
		Provider:        g.client.Provider(),
		Model:           completion.Model,
	}, nil
}

func (g *Generator) complete(ctx context.Context, topic *models.Topic, prompt llm.Prompt) (*llm.Completion, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	started := time.Now()
	completion, err := g.client.Complete(callCtx, prompt)
	elapsed := time.Since(started)
	g.metrics.ObserveLLM(g.client.Provider(), err == nil, elapsed)

	entry := models.AILog{
		OwnerID:     topic.OwnerID,
		TopicID:     topic.ID,
		Provider:    g.client.Provider(),
		ModelName:   prompt.Model,
		DurationMs:  elapsed.Milliseconds(),
		InputPrompt: prompt.User,
		RequestedAt: started,
		CompletedAt: started.Add(elapsed),
	}
	if err != nil {
		msg := err.Error()
		entry.ErrorMessage = &msg
	} else {
		entry.ModelName = completion.Model
		entry.InputTokens = completion.InputTokens
		entry.OutputTokens = completion.OutputTokens
		entry.TotalTokens = completion.TotalTokens
		entry.OutputResponse = completion.Text
	}
	g.record(ctx, entry)

	if err != nil {
		logger.ErrorWithFields("llm completion failed", logger.Fields{
			"owner_id": topic.OwnerID.Hex(), "topic_id": topic.ID.Hex(), "topic": topic.Name,
			"duration_ms": elapsed.Milliseconds(), "error": err.Error(),
		})
		return nil, err
	}
	logger.InfoWithFields("llm completion finished", logger.Fields{
		"owner_id": topic.OwnerID.Hex(), "topic_id": topic.ID.Hex(), "model": completion.Model,
		"duration_ms": elapsed.Milliseconds(), "total_tokens": completion.TotalTokens,
	})
	return completion, nil
}

// record 는 사용량 로그 저장 실패를 생성 실패로 취급하지 않는다.
func (g *Generator) record(ctx context.Context, entry models.AILog) {
	if g.logs == nil {
		return
	}
	if err := g.logs.Insert(context.WithoutCancel(ctx), entry); err != nil {
		logger.Log.Warnf("ai log insert failed: %v", err)
	}
}
