package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"autoblog/models"
)

type GenerationHistoryRepository struct {
	col *mongo.Collection
}

func NewGenerationHistoryRepository(db *mongo.Database) *GenerationHistoryRepository {
	return &GenerationHistoryRepository{col: db.Collection("generation_histories")}
}

// Create 는 processing 상태의 기록을 만든다.
func (r *GenerationHistoryRepository) Create(ctx context.Context, h *models.GenerationHistory) error {
	if h.Date.IsZero() {
		h.Date = time.Now()
	}
	h.Status = models.GenerationProcessing
	if h.TopicIDs == nil {
		h.TopicIDs = []primitive.ObjectID{}
	}
	if h.PostIDs == nil {
		h.PostIDs = []primitive.ObjectID{}
	}
	res, err := r.col.InsertOne(ctx, h)
	if err != nil {
		return err
	}
	h.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *GenerationHistoryRepository) SetTopics(ctx context.Context, id primitive.ObjectID, topicIDs []primitive.ObjectID) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.GenerationProcessing},
		bson.M{"$set": bson.M{"topic_ids": topicIDs}},
	)
	return err
}

// Finalize 는 processing 상태인 기록만 completed/failed 로 확정한다.
// 이미 확정된 기록이면 ErrNotFound 를 반환한다.
func (r *GenerationHistoryRepository) Finalize(ctx context.Context, id primitive.ObjectID, result models.GenerationHistory) error {
	res, err := r.col.UpdateOne(ctx, finalizeFilter(id), finalizeUpdate(result, time.Now()))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// finalizeFilter 는 processing 기록만 맞춰서 확정된 상태가 되돌아가지 않게 한다.
func finalizeFilter(id primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "status": models.GenerationProcessing}
}

func finalizeUpdate(result models.GenerationHistory, now time.Time) bson.M {
	set := bson.M{
		"status":        result.Status,
		"success_count": result.SuccessCount,
		"completed_at":  now,
	}
	if result.PostIDs != nil {
		set["post_ids"] = result.PostIDs
	}
	if result.Error != "" {
		set["error"] = result.Error
	}
	return bson.M{"$set": set}
}

func (r *GenerationHistoryRepository) FindByID(ctx context.Context, ownerID, id primitive.ObjectID) (*models.GenerationHistory, error) {
	var h models.GenerationHistory
	if err := r.col.FindOne(ctx, bson.M{"_id": id, "owner_id": ownerID}).Decode(&h); err != nil {
		return nil, translate(err)
	}
	return &h, nil
}

// MarkLatestProcessingFailed 는 배치 단위 실패 시 테넌트의 가장 최근 processing 기록을 failed 로 닫는다.
func (r *GenerationHistoryRepository) MarkLatestProcessingFailed(ctx context.Context, ownerID primitive.ObjectID, reason string) error {
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"owner_id": ownerID, "status": models.GenerationProcessing},
		bson.M{"$set": bson.M{"status": models.GenerationFailed, "error": reason, "completed_at": time.Now()}},
		options.FindOneAndUpdate().SetSort(bson.D{{Key: "date", Value: -1}}),
	).Err()
	return translate(err)
}

// ListRecent 는 대시보드용 최근 기록이다. limit 이 0 이하이면 5.
func (r *GenerationHistoryRepository) ListRecent(ctx context.Context, ownerID primitive.ObjectID, limit int) ([]models.GenerationHistory, error) {
	if limit <= 0 {
		limit = 5
	}
	cur, err := r.col.Find(ctx, bson.M{"owner_id": ownerID},
		options.Find().SetSort(bson.D{{Key: "date", Value: -1}}).SetLimit(int64(limit)))
	if err != nil {
		return nil, err
	}
	return decodeAll[models.GenerationHistory](ctx, cur)
}

type HistoryQuery struct {
	Pagination
	OwnerID primitive.ObjectID
	Status  models.GenerationStatus
}

func (r *GenerationHistoryRepository) List(ctx context.Context, q HistoryQuery) ([]models.GenerationHistory, int64, error) {
	filter := bson.M{"owner_id": q.OwnerID}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := r.col.Find(ctx, filter, q.findOptions().SetSort(bson.D{{Key: "date", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	items, err := decodeAll[models.GenerationHistory](ctx, cur)
	return items, total, err
}

// FailStale 은 before 이전에 시작되어 아직 processing 인 기록을 failed 로 닫는다.
// 프로세스가 배치 도중 종료되었을 때 남은 기록을 정리한다.
func (r *GenerationHistoryRepository) FailStale(ctx context.Context, before time.Time, reason string) (int64, error) {
	res, err := r.col.UpdateMany(ctx,
		bson.M{"status": models.GenerationProcessing, "date": bson.M{"$lt": before}},
		bson.M{"$set": bson.M{"status": models.GenerationFailed, "error": reason, "completed_at": time.Now()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// CountSince 는 관리자 통계용으로 since 이후 배치 수를 센다. status 가 비어 있으면 전체.
func (r *GenerationHistoryRepository) CountSince(ctx context.Context, since time.Time, status models.GenerationStatus) (int64, error) {
	filter := bson.M{"date": bson.M{"$gte": since}}
	if status != "" {
		filter["status"] = status
	}
	return r.col.CountDocuments(ctx, filter)
}
