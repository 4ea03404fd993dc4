// Package searchsync 는 다른 프로세스가 만든 글 변경을 API 프로세스의 검색 색인에 반영한다.
package searchsync

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/eventbus"
	"autoblog/events"
	"autoblog/logger"
	"autoblog/models"
	"autoblog/repositories"
)

// Index 는 search.Index 가 구현한다.
type Index interface {
	IndexPost(p *models.Post) error
	Delete(postID primitive.ObjectID) error
	Reindex(posts []models.Post) error
	Count() (uint64, error)
}

type PostSource interface {
	FindByID(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Post, error)
	ListPublished(ctx context.Context, ownerID primitive.ObjectID, limit int) ([]models.Post, error)
}

type TenantSource interface {
	ListActive(ctx context.Context) ([]models.User, error)
}

// backfillLimit 는 테넌트당 최초 색인에 넣는 최대 글 수다.
const backfillLimit = 45000

type Syncer struct {
	index  Index
	posts  PostSource
	source string
}

// New 의 source 는 이 프로세스의 이벤트 source 다. 자기 이벤트는 이미 색인되었으므로 건너뛴다.
func New(index Index, posts PostSource, source string) *Syncer {
	return &Syncer{index: index, posts: posts, source: source}
}

// Handle 은 글 이벤트 하나를 색인에 반영한다. 글이 없으면 색인에서 지운다.
func (s *Syncer) Handle(ctx context.Context, e events.PostEvent) error {
	if e.Source == s.source {
		return nil
	}
	if e.Type == events.PostDeleted {
		return s.index.Delete(e.PostID)
	}
	p, err := s.posts.FindByID(ctx, e.OwnerID, e.PostID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return s.index.Delete(e.PostID)
		}
		return fmt.Errorf("load post %s: %w", e.PostID.Hex(), err)
	}
	return s.index.IndexPost(p)
}

// Run 은 ctx 가 끝날 때까지 글 이벤트를 구독한다.
func (s *Syncer) Run(ctx context.Context, bus eventbus.EventBus, groupID string) error {
	return eventbus.SubscribeJSON(ctx, bus, groupID, eventbus.TopicPostEvents, func(ctx context.Context, e events.PostEvent, _ eventbus.Event) error {
		if err := s.Handle(ctx, e); err != nil {
			logger.ErrorWithFields("search sync failed", logger.Fields{
				"post_id": e.PostID.Hex(),
				"type":    string(e.Type),
				"error":   err.Error(),
			})
			return err
		}
		return nil
	})
}

// Backfill 은 색인이 비어 있을 때만 활성 테넌트의 발행 글을 모두 색인한다.
func (s *Syncer) Backfill(ctx context.Context, tenants TenantSource) (int, error) {
	n, err := s.index.Count()
	if err != nil {
		return 0, fmt.Errorf("count index: %w", err)
	}
	if n > 0 {
		return 0, nil
	}
	users, err := tenants.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tenants: %w", err)
	}
	total := 0
	for _, u := range users {
		posts, err := s.posts.ListPublished(ctx, u.ID, backfillLimit)
		if err != nil {
			return total, fmt.Errorf("list posts of %s: %w", u.ID.Hex(), err)
		}
		if len(posts) == 0 {
			continue
		}
		if err := s.index.Reindex(posts); err != nil {
			return total, err
		}
		total += len(posts)
	}
	return total, nil
}
