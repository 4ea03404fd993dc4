package handlers

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/models"
	"autoblog/repositories"
	"autoblog/services"
)

// TopicAPI 는 services.TopicService 가 구현한다.
type TopicAPI interface {
	Create(ctx context.Context, ownerID primitive.ObjectID, in services.CreateTopicInput) (*models.Topic, error)
	Get(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Topic, error)
	List(ctx context.Context, q repositories.TopicQuery) ([]models.Topic, int64, error)
	Update(ctx context.Context, ownerID, id primitive.ObjectID, in services.UpdateTopicInput) (*models.Topic, error)
	Delete(ctx context.Context, ownerID, id primitive.ObjectID) error
}

// PostAPI 는 services.PostService 가 구현한다.
type PostAPI interface {
	Create(ctx context.Context, ownerID primitive.ObjectID, in services.CreatePostInput) (*models.Post, error)
	Get(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Post, error)
	List(ctx context.Context, q repositories.PostQuery) ([]models.Post, int64, error)
	Update(ctx context.Context, ownerID, id primitive.ObjectID, in services.UpdatePostInput) (*models.Post, error)
	Publish(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Post, error)
	Unpublish(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Post, error)
	Archive(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Post, error)
	Delete(ctx context.Context, ownerID, id primitive.ObjectID) error
}

// GenerationAPI 는 services.GenerationService 가 구현한다.
type GenerationAPI interface {
	GenerateBatch(ctx context.Context, tenant *models.User, req services.BatchRequest) (*services.BatchResult, error)
	GenerateForTopic(ctx context.Context, tenant *models.User, topicID primitive.ObjectID, publishImmediately *bool) (*models.Post, *models.GenerationHistory, error)
	History(ctx context.Context, q repositories.HistoryQuery) ([]models.GenerationHistory, int64, error)
	GetHistory(ctx context.Context, ownerID, id primitive.ObjectID) (*models.GenerationHistory, error)
}
