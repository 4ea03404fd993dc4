package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"autoblog/models"
)

type AILogRepository struct {
	col *mongo.Collection
}

func NewAILogRepository(db *mongo.Database) *AILogRepository {
	return &AILogRepository{col: db.Collection("ai_logs")}
}

func (r *AILogRepository) Insert(ctx context.Context, log models.AILog) error {
	if log.RequestedAt.IsZero() {
		log.RequestedAt = time.Now()
	}
	_, err := r.col.InsertOne(ctx, log)
	return err
}

type TokenUsage struct {
	Calls        int64 `bson:"calls" json:"calls"`
	Failures     int64 `bson:"failures" json:"failures"`
	InputTokens  int64 `bson:"input_tokens" json:"input_tokens"`
	OutputTokens int64 `bson:"output_tokens" json:"output_tokens"`
	TotalTokens  int64 `bson:"total_tokens" json:"total_tokens"`
}

// UsageSince 는 since 이후 LLM 호출 수와 토큰 사용량을 합산한다. ownerID 가 nil 이면 전체.
func (r *AILogRepository) UsageSince(ctx context.Context, ownerID *primitive.ObjectID, since time.Time) (TokenUsage, error) {
	match := bson.M{"requested_at": bson.M{"$gte": since}}
	if ownerID != nil {
		match["owner_id"] = *ownerID
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":           nil,
			"calls":         bson.M{"$sum": 1},
			"failures":      bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$ifNull": bson.A{"$error_message", false}}, 1, 0}}},
			"input_tokens":  bson.M{"$sum": "$input_tokens"},
			"output_tokens": bson.M{"$sum": "$output_tokens"},
			"total_tokens":  bson.M{"$sum": "$total_tokens"},
		}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return TokenUsage{}, err
	}
	rows, err := decodeAll[TokenUsage](ctx, cur)
	if err != nil || len(rows) == 0 {
		return TokenUsage{}, err
	}
	return rows[0], nil
}
