package generator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/llm"
	"autoblog/models"
	"autoblog/quota"
)

type fakeLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	block   bool
	prompts []llm.Prompt
}

func (f *fakeLLM) Provider() string { return "fake" }

func (f *fakeLLM) Complete(ctx context.Context, p llm.Prompt) (*llm.Completion, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Completion{Text: f.reply, Model: "fake-model", InputTokens: 10, OutputTokens: 20, TotalTokens: 30}, nil
}

type fakeRecent struct{ posts []models.Post }

func (f fakeRecent) RecentByTopic(ctx context.Context, ownerID, topicID primitive.ObjectID, limit int) ([]models.Post, error) {
	if len(f.posts) > limit {
		return f.posts[:limit], nil
	}
	return f.posts, nil
}

type fakeSink struct {
	mu   sync.Mutex
	logs []models.AILog
}

func (f *fakeSink) Insert(ctx context.Context, l models.AILog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, l)
	return nil
}

const reply = "# 深入理解 Go 并发\n\n本文介绍 **goroutine** 和 channel。\n\n## 基础\n\nGo makes concurrency easy."

func newTopic() *models.Topic {
	return &models.Topic{ID: primitive.NewObjectID(), OwnerID: primitive.NewObjectID(), Name: "Go 并发"}
}

func TestGenerateProducesDraft(t *testing.T) {
	client := &fakeLLM{reply: reply}
	sink := &fakeSink{}
	g := New(client, fakeRecent{posts: []models.Post{{Title: "以前的文章", Content: "old"}}}, WithAILogSink(sink))

	draft, err := g.Generate(context.Background(), newTopic(), Settings{MinWords: 800, MaxWords: 1500, Temperature: 0.7})
	require.NoError(t, err)

	assert.Equal(t, "深入理解 Go 并发", draft.Title)
	assert.Equal(t, "本文介绍 goroutine 和 channel。", draft.MetaDescription)
	assert.Equal(t, CountWords(reply), draft.WordCount)
	assert.Equal(t, 1, draft.ReadingTime)
	assert.Equal(t, "fake", draft.Provider)
	assert.Regexp(t, slugShape, draft.Slug)
	assert.Equal(t, reply, draft.Content)

	require.Len(t, client.prompts, 1)
	assert.Equal(t, 0.7, client.prompts[0].Temperature)
	assert.Contains(t, client.prompts[0].User, "以前的文章")
	assert.Contains(t, client.prompts[0].System, "800-1500")

	require.Len(t, sink.logs, 1)
	assert.Nil(t, sink.logs[0].ErrorMessage)
	assert.Equal(t, int64(30), sink.logs[0].TotalTokens)
}

func TestGenerateWrapsLLMError(t *testing.T) {
	sink := &fakeSink{}
	g := New(&fakeLLM{err: errors.New("upstream 500")}, fakeRecent{}, WithAILogSink(sink))

	_, err := g.Generate(context.Background(), newTopic(), Settings{})
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Contains(t, err.Error(), "upstream 500")
	require.Len(t, sink.logs, 1)
	require.NotNil(t, sink.logs[0].ErrorMessage)
}

func TestGenerateTimesOut(t *testing.T) {
	g := New(&fakeLLM{block: true}, fakeRecent{}, WithTimeout(20*time.Millisecond))

	_, err := g.Generate(context.Background(), newTopic(), Settings{})
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerateRespectsQuota(t *testing.T) {
	client := &fakeLLM{reply: reply}
	g := New(client, fakeRecent{}, WithQuota(quota.NewLimiter(0, 1)))

	_, err := g.Generate(context.Background(), newTopic(), Settings{})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), newTopic(), Settings{})
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Len(t, client.prompts, 1)
}

func TestGenerateFallbackTitle(t *testing.T) {
	g := New(&fakeLLM{reply: "no heading\n\nbody"}, fakeRecent{})
	draft, err := g.Generate(context.Background(), newTopic(), Settings{})
	require.NoError(t, err)
	assert.Equal(t, "Go 并发 - 新文章", draft.Title)
}
