package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/events"
	"autoblog/generator"
	"autoblog/models"
	"autoblog/repositories"
)

// 서비스는 repositories 구현 대신 아래 인터페이스에 의존한다. 테스트는 인메모리 구현을 쓴다.

type TopicStore interface {
	Insert(ctx context.Context, t *models.Topic) error
	FindByID(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Topic, error)
	List(ctx context.Context, q repositories.TopicQuery) ([]models.Topic, int64, error)
	ListForGeneration(ctx context.Context, ownerID primitive.ObjectID, limit int) ([]models.Topic, error)
	UpdateFields(ctx context.Context, ownerID, id primitive.ObjectID, set bson.M) (*models.Topic, error)
	Delete(ctx context.Context, ownerID, id primitive.ObjectID) error
	IncrementGenerated(ctx context.Context, ownerID, id primitive.ObjectID, at time.Time) error
	Count(ctx context.Context, ownerID primitive.ObjectID, status models.TopicStatus) (int64, error)
}

type PostStore interface {
	Insert(ctx context.Context, p *models.Post) error
	FindByID(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Post, error)
	FindBySlug(ctx context.Context, ownerID primitive.ObjectID, slug string) (*models.Post, error)
	List(ctx context.Context, q repositories.PostQuery) ([]models.Post, int64, error)
	ListPublished(ctx context.Context, ownerID primitive.ObjectID, limit int) ([]models.Post, error)
	Related(ctx context.Context, p *models.Post, limit int) ([]models.Post, error)
	Categories(ctx context.Context, ownerID primitive.ObjectID) ([]repositories.CategoryCount, error)
	UpdateFields(ctx context.Context, ownerID, id primitive.ObjectID, set bson.M) (*models.Post, error)
	IncrementViewCount(ctx context.Context, id primitive.ObjectID) error
	UnsetTopic(ctx context.Context, ownerID, topicID primitive.ObjectID) (int64, error)
	CountByStatus(ctx context.Context, ownerID *primitive.ObjectID) (map[models.PostStatus]int64, error)
}

type HistoryStore interface {
	Create(ctx context.Context, h *models.GenerationHistory) error
	SetTopics(ctx context.Context, id primitive.ObjectID, topicIDs []primitive.ObjectID) error
	Finalize(ctx context.Context, id primitive.ObjectID, result models.GenerationHistory) error
	MarkLatestProcessingFailed(ctx context.Context, ownerID primitive.ObjectID, reason string) error
	FindByID(ctx context.Context, ownerID, id primitive.ObjectID) (*models.GenerationHistory, error)
	List(ctx context.Context, q repositories.HistoryQuery) ([]models.GenerationHistory, int64, error)
	ListRecent(ctx context.Context, ownerID primitive.ObjectID, limit int) ([]models.GenerationHistory, error)
}

type UserStore interface {
	Insert(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByGithubID(ctx context.Context, githubID string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindBySubdomain(ctx context.Context, subdomain string) (*models.User, error)
	FindByCustomDomain(ctx context.Context, domain string) (*models.User, error)
	Count(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
	UpdateFields(ctx context.Context, id primitive.ObjectID, set bson.M) error
	ClearCustomDomain(ctx context.Context, id primitive.ObjectID) error
	IncrementVerifyAttempts(ctx context.Context, id primitive.ObjectID, status models.DomainStatus, reason string) error
	List(ctx context.Context, q repositories.UserQuery) ([]models.User, int64, error)
	ListAutoGenerate(ctx context.Context) ([]models.User, error)
	ListActive(ctx context.Context) ([]models.User, error)
	ListPendingDomains(ctx context.Context, maxAttempts int) ([]models.User, error)
}

type SettingsStore interface {
	Get(ctx context.Context) (*models.SystemSettings, error)
	Save(ctx context.Context, s *models.SystemSettings) error
}

type SitemapStore interface {
	Upsert(ctx context.Context, s *models.Sitemap) error
	FindByOwner(ctx context.Context, ownerID primitive.ObjectID) (*models.Sitemap, error)
}

type UsageStore interface {
	UsageSince(ctx context.Context, ownerID *primitive.ObjectID, since time.Time) (repositories.TokenUsage, error)
}

// EventPublisher 는 events.Dispatcher 가 구현한다.
type EventPublisher interface {
	PublishPost(ctx context.Context, t events.EventType, ownerID, postID primitive.ObjectID, slug, status string) error
	PublishBatch(ctx context.Context, e events.BatchEvent) error
	PublishDomain(ctx context.Context, t events.EventType, ownerID primitive.ObjectID, hosts []string, status string) error
}

// PostIndexer 는 search.Index 가 구현한다. nil 이면 색인을 건너뛴다.
type PostIndexer interface {
	IndexPost(p *models.Post) error
	Delete(postID primitive.ObjectID) error
}

// DraftGenerator 는 generator.Generator 가 구현한다.
type DraftGenerator interface {
	Generate(ctx context.Context, topic *models.Topic, s generator.Settings) (*generator.Draft, error)
	Slug(title string) string
	Provider() string
}
