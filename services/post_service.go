package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/events"
	"autoblog/generator"
	"autoblog/logger"
	"autoblog/models"
	"autoblog/repositories"
)

// slug 충돌 시 새 접미사로 다시 시도하는 횟수
const maxSlugAttempts = 5

// SlugMaker 는 generator.Slugger 가 구현한다.
type SlugMaker interface {
	Make(title string) string
}

// PostService 는 글 저장과 상태 전이를 담당한다. 상태가 바뀔 때마다 이벤트를 발행하고
// 검색 인덱스를 갱신한다. events 와 index 는 nil 일 수 있다.
type PostService struct {
	posts  PostStore
	events EventPublisher
	index  PostIndexer
	slugs  SlugMaker
	now    func() time.Time
}

func NewPostService(posts PostStore, events EventPublisher, index PostIndexer, slugs SlugMaker) *PostService {
	if slugs == nil {
		slugs = generator.NewSlugger()
	}
	return &PostService{posts: posts, events: events, index: index, slugs: slugs, now: time.Now}
}

type CreatePostInput struct {
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Excerpt         string   `json:"excerpt"`
	Keywords        []string `json:"keywords"`
	Categories      []string `json:"categories"`
	MetaTitle       string   `json:"meta_title"`
	MetaDescription string   `json:"meta_description"`
	Status          string   `json:"status"`
	TopicID         string   `json:"topic_id"`
}

type UpdatePostInput struct {
	Title           *string   `json:"title"`
	Content         *string   `json:"content"`
	Excerpt         *string   `json:"excerpt"`
	Keywords        *[]string `json:"keywords"`
	Categories      *[]string `json:"categories"`
	MetaTitle       *string   `json:"meta_title"`
	MetaDescription *string   `json:"meta_description"`
}

// Create 는 직접 작성한 글을 저장한다.
func (s *PostService) Create(ctx context.Context, ownerID primitive.ObjectID, in CreatePostInput) (*models.Post, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}
	status := models.PostDraft
	switch models.PostStatus(in.Status) {
	case "", models.PostDraft:
	case models.PostPublished:
		status = models.PostPublished
	default:
		return nil, fmt.Errorf("%w: posts can only be created as draft or published", ErrValidation)
	}

	p := &models.Post{
		OwnerID:         ownerID,
		Title:           title,
		Content:         in.Content,
		Excerpt:         in.Excerpt,
		Keywords:        cleanList(in.Keywords),
		Categories:      cleanList(in.Categories),
		MetaTitle:       firstString(in.MetaTitle, title),
		MetaDescription: firstString(in.MetaDescription, generator.MetaDescription(in.Content)),
		Status:          status,
	}
	if p.Excerpt == "" {
		p.Excerpt = generator.Excerpt(in.Content)
	}
	p.WordCount = generator.CountWords(in.Content)
	p.ReadingTime = generator.ReadingTime(p.WordCount)
	if in.TopicID != "" {
		tid, err := primitive.ObjectIDFromHex(in.TopicID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid topic_id", ErrValidation)
		}
		p.TopicID = &tid
	}
	if err := s.Insert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Insert 는 slug 가 (owner, slug) 유니크 인덱스와 충돌하면 새 slug 로 다시 저장한다.
// p.Slug 가 비어 있으면 제목으로 만든다.
func (s *PostService) Insert(ctx context.Context, p *models.Post) error {
	if p.Keywords == nil {
		p.Keywords = []string{}
	}
	if p.Categories == nil {
		p.Categories = []string{}
	}
	if p.Status == models.PostPublished && p.PublishedAt == nil {
		now := s.now()
		p.PublishedAt = &now
	}

	for attempt := 0; ; attempt++ {
		if p.Slug == "" || attempt > 0 {
			p.Slug = s.slugs.Make(p.Title)
		}
		err := s.posts.Insert(ctx, p)
		if err == nil {
			break
		}
		if !errors.Is(err, repositories.ErrDuplicate) {
			return fmt.Errorf("insert post: %w", err)
		}
		if attempt+1 >= maxSlugAttempts {
			return ErrSlugExhausted
		}
		logger.WarnWithFields("slug collision, regenerating", logger.Fields{"owner_id": p.OwnerID.Hex(), "slug": p.Slug})
	}

	if p.Status == models.PostPublished {
		s.reindex(p)
		s.emit(ctx, events.PostPublished, p)
	} else {
		s.emit(ctx, events.PostCreated, p)
	}
	return nil
}

func (s *PostService) Get(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Post, error) {
	p, err := s.posts.FindByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	if p.Status == models.PostDeleted {
		return nil, ErrPostNotFound
	}
	return p, nil
}

// GetBySlug 는 공개 블로그에서 사용한다. includeDrafts 가 false 면 발행 글만 반환한다.
func (s *PostService) GetBySlug(ctx context.Context, ownerID primitive.ObjectID, slug string, includeDrafts bool) (*models.Post, error) {
	p, err := s.posts.FindBySlug(ctx, ownerID, slug)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	if p.Status == models.PostDeleted || (!includeDrafts && p.Status != models.PostPublished) {
		return nil, ErrPostNotFound
	}
	return p, nil
}

func (s *PostService) List(ctx context.Context, q repositories.PostQuery) ([]models.Post, int64, error) {
	return s.posts.List(ctx, q)
}

func (s *PostService) Update(ctx context.Context, ownerID, id primitive.ObjectID, in UpdatePostInput) (*models.Post, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	set := bson.M{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", ErrValidation)
		}
		set["title"] = title
	}
	if in.Content != nil {
		wc := generator.CountWords(*in.Content)
		set["content"] = *in.Content
		set["word_count"] = wc
		set["reading_time"] = generator.ReadingTime(wc)
		if in.Excerpt == nil {
			set["excerpt"] = generator.Excerpt(*in.Content)
		}
	}
	if in.Excerpt != nil {
		set["excerpt"] = *in.Excerpt
	}
	if in.Keywords != nil {
		set["keywords"] = cleanList(*in.Keywords)
	}
	if in.Categories != nil {
		set["categories"] = cleanList(*in.Categories)
	}
	if in.MetaTitle != nil {
		set["meta_title"] = *in.MetaTitle
	}
	if in.MetaDescription != nil {
		set["meta_description"] = *in.MetaDescription
	}

	p, err := s.update(ctx, ownerID, id, set)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PostPublished {
		s.reindex(p)
	}
	return p, nil
}

// Publish 는 published 로 전이할 때만 published_at 을 기록한다. 이미 발행된 글은 그대로 반환한다.
func (s *PostService) Publish(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Post, error) {
	p, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PostPublished {
		return p, nil
	}
	p, err = s.update(ctx, ownerID, id, bson.M{"status": models.PostPublished, "published_at": s.now()})
	if err != nil {
		return nil, err
	}
	s.reindex(p)
	s.emit(ctx, events.PostPublished, p)
	return p, nil
}

// Unpublish 는 글을 draft 로 되돌리고 published_at 을 비운다.
func (s *PostService) Unpublish(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Post, error) {
	return s.withdraw(ctx, ownerID, id, models.PostDraft, events.PostUnpublished)
}

func (s *PostService) Archive(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Post, error) {
	return s.withdraw(ctx, ownerID, id, models.PostArchived, events.PostUnpublished)
}

// Delete 는 status 만 deleted 로 바꾼다.
func (s *PostService) Delete(ctx context.Context, ownerID, id primitive.ObjectID) error {
	_, err := s.withdraw(ctx, ownerID, id, models.PostDeleted, events.PostDeleted)
	return err
}

func (s *PostService) withdraw(ctx context.Context, ownerID, id primitive.ObjectID, to models.PostStatus, evt events.EventType) (*models.Post, error) {
	cur, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if cur.Status == to {
		return cur, nil
	}
	set := bson.M{"status": to}
	if to != models.PostArchived {
		set["published_at"] = nil
	}
	p, err := s.update(ctx, ownerID, id, set)
	if err != nil {
		return nil, err
	}
	if s.index != nil {
		if err := s.index.Delete(p.ID); err != nil {
			logger.Log.Warnf("remove post %s from search index: %v", p.ID.Hex(), err)
		}
	}
	if cur.Status == models.PostPublished || to == models.PostDeleted {
		s.emit(ctx, evt, p)
	}
	return p, nil
}

func (s *PostService) update(ctx context.Context, ownerID, id primitive.ObjectID, set bson.M) (*models.Post, error) {
	p, err := s.posts.UpdateFields(ctx, ownerID, id, set)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("update post: %w", err)
	}
	return p, nil
}

func (s *PostService) Related(ctx context.Context, p *models.Post, limit int) ([]models.Post, error) {
	if limit <= 0 {
		limit = 3
	}
	return s.posts.Related(ctx, p, limit)
}

func (s *PostService) Categories(ctx context.Context, ownerID primitive.ObjectID) ([]repositories.CategoryCount, error) {
	return s.posts.Categories(ctx, ownerID)
}

func (s *PostService) Published(ctx context.Context, ownerID primitive.ObjectID, limit int) ([]models.Post, error) {
	return s.posts.ListPublished(ctx, ownerID, limit)
}

// RecordView 는 조회수 증가 실패를 요청 실패로 만들지 않는다.
func (s *PostService) RecordView(ctx context.Context, id primitive.ObjectID) {
	if err := s.posts.IncrementViewCount(ctx, id); err != nil {
		logger.Log.Warnf("increment view count for %s: %v", id.Hex(), err)
	}
}

func (s *PostService) CountByStatus(ctx context.Context, ownerID *primitive.ObjectID) (map[models.PostStatus]int64, error) {
	return s.posts.CountByStatus(ctx, ownerID)
}

func (s *PostService) reindex(p *models.Post) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexPost(p); err != nil {
		logger.Log.Warnf("index post %s: %v", p.ID.Hex(), err)
	}
}

// emit 은 이벤트 발행 실패를 경고로만 남긴다. 글 저장은 이미 끝났다.
func (s *PostService) emit(ctx context.Context, t events.EventType, p *models.Post) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishPost(ctx, t, p.OwnerID, p.ID, p.Slug, string(p.Status)); err != nil {
		logger.WarnWithFields("publish post event failed", logger.Fields{"type": string(t), "post_id": p.ID.Hex(), "error": err.Error()})
	}
}
