package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/logger"
	"autoblog/models"
	"autoblog/repositories"
)

// 관리자 대시보드 집계에 필요한 전역 카운트
type TopicCounter interface {
	CountAll(ctx context.Context) (int64, error)
}

type BatchCounter interface {
	CountSince(ctx context.Context, since time.Time, status models.GenerationStatus) (int64, error)
}

type AdminService struct {
	users   UserStore
	posts   PostStore
	topics  TopicCounter
	batches BatchCounter
	usage   UsageStore
	now     func() time.Time
}

func NewAdminService(users UserStore, posts PostStore, topics TopicCounter, batches BatchCounter, usage UsageStore) *AdminService {
	return &AdminService{users: users, posts: posts, topics: topics, batches: batches, usage: usage, now: time.Now}
}

func (s *AdminService) ListUsers(ctx context.Context, q repositories.UserQuery) ([]models.User, int64, error) {
	return s.users.List(ctx, q)
}

// ChangeRole 은 관리자가 자기 자신을 강등하지 못하게 한다.
func (s *AdminService) ChangeRole(ctx context.Context, actorID, userID primitive.ObjectID, role string) (*models.User, error) {
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: invalid role %q", ErrValidation, role)
	}
	if actorID == userID && role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: cannot demote yourself", ErrValidation)
	}
	return s.update(ctx, userID, bson.M{"role": role})
}

// ToggleActive 는 활성 상태를 뒤집는다. 비활성 테넌트의 블로그는 도메인 조회에서 빠진다.
func (s *AdminService) ToggleActive(ctx context.Context, actorID, userID primitive.ObjectID) (*models.User, error) {
	if actorID == userID {
		return nil, fmt.Errorf("%w: cannot deactivate yourself", ErrValidation)
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.update(ctx, userID, bson.M{"is_active": !u.IsActive})
}

func (s *AdminService) update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	if err := s.users.UpdateFields(ctx, id, set); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	logger.InfoWithFields("user updated by admin", logger.Fields{"user_id": id.Hex(), "role": u.Role, "is_active": u.IsActive})
	return u, nil
}

type Stats struct {
	Users          int64                       `json:"users"`
	ActiveUsers    int64                       `json:"active_users"`
	Topics         int64                       `json:"topics"`
	Posts          map[models.PostStatus]int64 `json:"posts"`
	BatchesToday   int64                       `json:"batches_today"`
	FailedToday    int64                       `json:"failed_batches_today"`
	TokenUsage24h  repositories.TokenUsage     `json:"token_usage_24h"`
	GeneratedSince time.Time                   `json:"generated_since"`
}

// Stats 는 최근 24시간 기준으로 집계한다.
func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	since := s.now().Add(-24 * time.Hour)
	out := &Stats{GeneratedSince: since}
	var err error
	if out.Users, err = s.users.Count(ctx); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if out.ActiveUsers, err = s.users.CountActive(ctx); err != nil {
		return nil, fmt.Errorf("count active users: %w", err)
	}
	if out.Topics, err = s.topics.CountAll(ctx); err != nil {
		return nil, fmt.Errorf("count topics: %w", err)
	}
	if out.Posts, err = s.posts.CountByStatus(ctx, nil); err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	if out.BatchesToday, err = s.batches.CountSince(ctx, since, ""); err != nil {
		return nil, fmt.Errorf("count batches: %w", err)
	}
	if out.FailedToday, err = s.batches.CountSince(ctx, since, models.GenerationFailed); err != nil {
		return nil, fmt.Errorf("count failed batches: %w", err)
	}
	if out.TokenUsage24h, err = s.usage.UsageSince(ctx, nil, since); err != nil {
		return nil, fmt.Errorf("token usage: %w", err)
	}
	return out, nil
}
