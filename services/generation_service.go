package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"autoblog/cache"
	"autoblog/events"
	"autoblog/logger"
	"autoblog/metrics"
	"autoblog/models"
	"autoblog/repositories"
)

const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
	TriggerTopic     = "topic"
)

// BatchRequest 의 Count 가 0 이하면 테넌트/시스템 배치 크기를 쓴다.
// PublishImmediately 가 nil 이면 테넌트의 auto_publish 설정을 따른다.
type BatchRequest struct {
	Count              int
	PublishImmediately *bool
	Trigger            string
}

// TopicFailure 는 배치에서 실패한 주제 하나다.
type TopicFailure struct {
	TopicID   primitive.ObjectID `json:"topic_id"`
	TopicName string             `json:"topic_name"`
	Error     string             `json:"error"`
}

// BatchResult 의 Posts 는 성공한 글만 담는다.
type BatchResult struct {
	History  *models.GenerationHistory `json:"history"`
	Posts    []models.Post             `json:"posts"`
	Failures []TopicFailure            `json:"failures"`
}

// GenerationService 는 주제 선택, 병렬 생성, 이력 기록을 묶는 배치 오케스트레이터다.
type GenerationService struct {
	topics      TopicStore
	histories   HistoryStore
	posts       *PostService
	settings    *SettingsService
	gen         DraftGenerator
	events      EventPublisher
	lock        cache.BatchLock
	metrics     *metrics.Collector
	concurrency int
	now         func() time.Time
}

type GenerationOption func(*GenerationService)

func WithBatchLock(l cache.BatchLock) GenerationOption {
	return func(s *GenerationService) { s.lock = l }
}

func WithGenerationEvents(p EventPublisher) GenerationOption {
	return func(s *GenerationService) { s.events = p }
}

func WithGenerationMetrics(c *metrics.Collector) GenerationOption {
	return func(s *GenerationService) { s.metrics = c }
}

// WithConcurrency 는 동시에 실행할 주제 수다. 0 이하면 제한하지 않는다.
func WithConcurrency(n int) GenerationOption {
	return func(s *GenerationService) { s.concurrency = n }
}

func NewGenerationService(topics TopicStore, histories HistoryStore, posts *PostService, settings *SettingsService, gen DraftGenerator, opts ...GenerationOption) *GenerationService {
	s := &GenerationService{
		topics:      topics,
		histories:   histories,
		posts:       posts,
		settings:    settings,
		gen:         gen,
		concurrency: 3,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type topicOutcome struct {
	post *models.Post
	err  error
}

// GenerateBatch 는 테넌트의 활성 주제 중 가장 적게 생성된 주제부터 최대 Count 개를 골라 글을 만든다.
// 주제별 실패는 결과의 Failures 로 모으고 배치를 중단하지 않는다. 이력 저장이나 주제 조회처럼
// 배치 자체가 실패하면 이력을 failed 로 남기고 에러를 반환한다.
func (s *GenerationService) GenerateBatch(ctx context.Context, tenant *models.User, req BatchRequest) (*BatchResult, error) {
	if !tenant.IsActive {
		return nil, ErrUserInactive
	}
	if req.Trigger == "" {
		req.Trigger = TriggerManual
	}

	if s.lock != nil {
		release, err := s.lock.Acquire(ctx, tenant.ID)
		if err != nil {
			if errors.Is(err, cache.ErrLockHeld) {
				return nil, ErrBatchRunning
			}
			return nil, fmt.Errorf("acquire batch lock: %w", err)
		}
		defer release()
	}

	rs, err := s.settings.Resolve(ctx, tenant)
	if err != nil {
		return nil, err
	}
	count := req.Count
	if count <= 0 {
		count = rs.PostsPerBatch
	}
	if count <= 0 {
		count = 1
	}
	if count > maxBatchSize {
		return nil, fmt.Errorf("%w: count must be at most %d", ErrValidation, maxBatchSize)
	}

	h := &models.GenerationHistory{
		OwnerID:        tenant.ID,
		Date:           s.now(),
		RequestedCount: count,
		Trigger:        req.Trigger,
	}
	if err := s.histories.Create(ctx, h); err != nil {
		return nil, s.abort(ctx, tenant.ID, nil, req.Trigger, fmt.Errorf("create generation history: %w", err))
	}

	log := logger.Fields{"owner_id": tenant.ID.Hex(), "history_id": h.ID.Hex(), "requested": count, "trigger": req.Trigger}
	logger.InfoWithFields("generation batch started", log)

	topics, err := s.topics.ListForGeneration(ctx, tenant.ID, count)
	if err != nil {
		return nil, s.abort(ctx, tenant.ID, h, req.Trigger, fmt.Errorf("load topics: %w", err))
	}
	if len(topics) == 0 {
		h.Status = models.GenerationFailed
		h.Error = ErrNoActiveTopics.Error()
		if err := s.histories.Finalize(ctx, h.ID, *h); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, s.abort(ctx, tenant.ID, h, req.Trigger, fmt.Errorf("finalize generation history: %w", err))
		}
		logger.WarnWithFields("generation batch skipped: no active topics", log)
		s.finish(ctx, h, req.Trigger)
		return &BatchResult{History: h, Posts: []models.Post{}, Failures: []TopicFailure{}}, nil
	}
	if len(topics) > count {
		topics = topics[:count]
	}

	h.TopicIDs = make([]primitive.ObjectID, len(topics))
	for i := range topics {
		h.TopicIDs[i] = topics[i].ID
	}
	if err := s.histories.SetTopics(ctx, h.ID, h.TopicIDs); err != nil {
		return nil, s.abort(ctx, tenant.ID, h, req.Trigger, fmt.Errorf("record selected topics: %w", err))
	}

	outcomes := make([]topicOutcome, len(topics))
	var g errgroup.Group
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i := range topics {
		g.Go(func() error {
			p, err := s.generateOne(ctx, tenant, &topics[i], rs, req.PublishImmediately)
			outcomes[i] = topicOutcome{post: p, err: err}
			return nil
		})
	}
	_ = g.Wait()

	result := &BatchResult{History: h, Posts: []models.Post{}, Failures: []TopicFailure{}}
	h.PostIDs = []primitive.ObjectID{}
	for i, o := range outcomes {
		s.metrics.GenerationResult(o.err == nil)
		if o.err != nil {
			result.Failures = append(result.Failures, TopicFailure{TopicID: topics[i].ID, TopicName: topics[i].Name, Error: o.err.Error()})
			logger.ErrorWithFields("topic generation failed", logger.Fields{
				"owner_id": tenant.ID.Hex(), "topic_id": topics[i].ID.Hex(), "error": o.err.Error(),
			})
			continue
		}
		result.Posts = append(result.Posts, *o.post)
		h.PostIDs = append(h.PostIDs, o.post.ID)
	}

	h.SuccessCount = min(len(result.Posts), h.RequestedCount)
	h.Status = models.GenerationCompleted
	if err := s.histories.Finalize(ctx, h.ID, *h); err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			return result, fmt.Errorf("finalize generation history: %w", err)
		}
		// 실행이 너무 길어 다른 프로세스가 이미 failed 로 확정한 경우
		logger.WarnWithFields("generation history already finalized", log)
	}
	completedAt := s.now()
	h.CompletedAt = &completedAt

	log["succeeded"] = h.SuccessCount
	log["failed"] = len(result.Failures)
	logger.InfoWithFields("generation batch completed", log)
	s.finish(ctx, h, req.Trigger)
	return result, nil
}

// GenerateForTopic 은 주제 하나로 글 한 편을 만든다. 배치와 달리 실패를 에러로 돌려준다.
func (s *GenerationService) GenerateForTopic(ctx context.Context, tenant *models.User, topicID primitive.ObjectID, publishImmediately *bool) (*models.Post, *models.GenerationHistory, error) {
	if !tenant.IsActive {
		return nil, nil, ErrUserInactive
	}
	topic, err := s.topics.FindByID(ctx, tenant.ID, topicID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, ErrTopicNotFound
		}
		return nil, nil, fmt.Errorf("load topic: %w", err)
	}
	rs, err := s.settings.Resolve(ctx, tenant)
	if err != nil {
		return nil, nil, err
	}

	h := &models.GenerationHistory{
		OwnerID:        tenant.ID,
		Date:           s.now(),
		RequestedCount: 1,
		TopicIDs:       []primitive.ObjectID{topic.ID},
		Trigger:        TriggerTopic,
	}
	if err := s.histories.Create(ctx, h); err != nil {
		return nil, nil, s.abort(ctx, tenant.ID, nil, TriggerTopic, fmt.Errorf("create generation history: %w", err))
	}

	p, err := s.generateOne(ctx, tenant, topic, rs, publishImmediately)
	s.metrics.GenerationResult(err == nil)
	if err != nil {
		return nil, h, s.abort(ctx, tenant.ID, h, TriggerTopic, err)
	}

	h.Status = models.GenerationCompleted
	h.SuccessCount = 1
	h.PostIDs = []primitive.ObjectID{p.ID}
	if err := s.histories.Finalize(ctx, h.ID, *h); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return p, h, fmt.Errorf("finalize generation history: %w", err)
	}
	s.finish(ctx, h, TriggerTopic)
	return p, h, nil
}

// generateOne 은 초안을 만들고 주제 정보를 붙여 저장한 뒤 주제 카운터를 올린다.
func (s *GenerationService) generateOne(ctx context.Context, tenant *models.User, topic *models.Topic, rs ResolvedSettings, publishImmediately *bool) (*models.Post, error) {
	draft, err := s.gen.Generate(ctx, topic, rs.Generator)
	if err != nil {
		return nil, err
	}

	status := models.PostDraft
	if rs.AutoPublish || (publishImmediately != nil && *publishImmediately) {
		status = models.PostPublished
	}
	topicID := topic.ID
	p := &models.Post{
		OwnerID:         tenant.ID,
		TopicID:         &topicID,
		Title:           draft.Title,
		Slug:            draft.Slug,
		Content:         draft.Content,
		Excerpt:         draft.Excerpt,
		Keywords:        append([]string{}, topic.Keywords...),
		Categories:      append([]string{}, topic.Categories...),
		MetaTitle:       draft.Title,
		MetaDescription: draft.MetaDescription,
		Status:          status,
		WordCount:       draft.WordCount,
		ReadingTime:     draft.ReadingTime,
		IsGenerated:     true,
		GeneratedBy:     firstString(draft.Provider, s.gen.Provider()),
	}
	if err := s.posts.Insert(ctx, p); err != nil {
		return nil, err
	}

	// 카운터를 올리지 못한 글은 이 배치의 성공으로 세지 않는다. 글 자체는 초안/발행 상태로 남는다.
	if err := s.topics.IncrementGenerated(ctx, tenant.ID, topic.ID, s.now()); err != nil {
		logger.ErrorWithFields("increment topic counter failed", logger.Fields{
			"topic_id": topic.ID.Hex(), "post_id": p.ID.Hex(), "error": err.Error(),
		})
		return nil, fmt.Errorf("increment topic counter: %w", err)
	}
	return p, nil
}

// abort 는 배치 수준 실패를 이력에 남긴다. 이력 ID 를 모르면 테넌트의 가장 최근 processing 이력을 실패 처리한다.
func (s *GenerationService) abort(ctx context.Context, ownerID primitive.ObjectID, h *models.GenerationHistory, trigger string, cause error) error {
	bg := context.WithoutCancel(ctx)
	var err error
	if h == nil || h.ID.IsZero() {
		err = s.histories.MarkLatestProcessingFailed(bg, ownerID, cause.Error())
		s.metrics.BatchFinished(string(models.GenerationFailed), trigger)
	} else {
		h.Status = models.GenerationFailed
		h.Error = cause.Error()
		h.SuccessCount = 0
		err = s.histories.Finalize(bg, h.ID, *h)
		s.finish(bg, h, trigger)
	}
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		logger.ErrorWithFields("mark generation history failed", logger.Fields{"owner_id": ownerID.Hex(), "error": err.Error()})
	}
	logger.ErrorWithFields("generation batch failed", logger.Fields{"owner_id": ownerID.Hex(), "trigger": trigger, "error": cause.Error()})
	return cause
}

func (s *GenerationService) finish(ctx context.Context, h *models.GenerationHistory, trigger string) {
	s.metrics.BatchFinished(string(h.Status), trigger)
	if s.events == nil {
		return
	}
	err := s.events.PublishBatch(ctx, events.BatchEvent{
		OwnerID:        h.OwnerID,
		HistoryID:      h.ID,
		RequestedCount: h.RequestedCount,
		SuccessCount:   h.SuccessCount,
		PostIDs:        h.PostIDs,
		Error:          h.Error,
	})
	if err != nil {
		logger.WarnWithFields("publish batch event failed", logger.Fields{"history_id": h.ID.Hex(), "error": err.Error()})
	}
}

func (s *GenerationService) History(ctx context.Context, q repositories.HistoryQuery) ([]models.GenerationHistory, int64, error) {
	return s.histories.List(ctx, q)
}

func (s *GenerationService) RecentHistory(ctx context.Context, ownerID primitive.ObjectID, limit int) ([]models.GenerationHistory, error) {
	return s.histories.ListRecent(ctx, ownerID, limit)
}

func (s *GenerationService) GetHistory(ctx context.Context, ownerID, id primitive.ObjectID) (*models.GenerationHistory, error) {
	h, err := s.histories.FindByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrHistoryNotFound
		}
		return nil, err
	}
	return h, nil
}
