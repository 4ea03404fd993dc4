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

type TopicRepository struct {
	col *mongo.Collection
}

func NewTopicRepository(db *mongo.Database) *TopicRepository {
	return &TopicRepository{col: db.Collection("topics")}
}

type TopicQuery struct {
	Pagination
	OwnerID primitive.ObjectID
	Status  models.TopicStatus
}

func (r *TopicRepository) Insert(ctx context.Context, t *models.Topic) error {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = models.TopicActive
	}
	res, err := r.col.InsertOne(ctx, t)
	if err != nil {
		return translate(err)
	}
	t.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *TopicRepository) FindByID(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Topic, error) {
	var t models.Topic
	if err := r.col.FindOne(ctx, ownedTopic(ownerID, id)).Decode(&t); err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *TopicRepository) List(ctx context.Context, q TopicQuery) ([]models.Topic, int64, error) {
	filter := bson.M{"owner_id": q.OwnerID}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := r.col.Find(ctx, filter, q.findOptions().SetSort(bson.D{
		{Key: "priority", Value: -1},
		{Key: "created_at", Value: -1},
	}))
	if err != nil {
		return nil, 0, err
	}
	topics, err := decodeAll[models.Topic](ctx, cur)
	return topics, total, err
}

// selectionFilter 는 생성 대상이 될 수 있는 주제의 조건이다.
func selectionFilter(ownerID primitive.ObjectID) bson.M {
	return bson.M{"owner_id": ownerID, "status": models.TopicActive}
}

// selectionSort 는 적게 생성된 주제를 먼저, 같으면 priority 가 높은 주제를 먼저 고른다.
// 마지막 _id 키는 동률일 때 순서를 고정한다.
func selectionSort() bson.D {
	return bson.D{
		{Key: "posts_generated", Value: 1},
		{Key: "priority", Value: -1},
		{Key: "_id", Value: 1},
	}
}

// ListForGeneration 은 활성 주제를 선택 순서대로 최대 limit 개 반환한다.
func (r *TopicRepository) ListForGeneration(ctx context.Context, ownerID primitive.ObjectID, limit int) ([]models.Topic, error) {
	opts := options.Find().SetSort(selectionSort())
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.col.Find(ctx, selectionFilter(ownerID), opts)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Topic](ctx, cur)
}

func (r *TopicRepository) UpdateFields(ctx context.Context, ownerID, id primitive.ObjectID, set bson.M) (*models.Topic, error) {
	update := bson.M{"updated_at": time.Now()}
	for k, v := range set {
		update[k] = v
	}
	var t models.Topic
	err := r.col.FindOneAndUpdate(ctx,
		ownedTopic(ownerID, id),
		bson.M{"$set": update},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&t)
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *TopicRepository) Delete(ctx context.Context, ownerID, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, ownedTopic(ownerID, id))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ownedTopic 은 다른 테넌트의 주제를 건드리지 않도록 항상 owner_id 를 함께 건다.
func ownedTopic(ownerID, id primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "owner_id": ownerID}
}

func incrementGeneratedUpdate(at time.Time) bson.M {
	return bson.M{
		"$inc": bson.M{"posts_generated": 1},
		"$set": bson.M{"last_generated_at": at, "updated_at": at},
	}
}

// IncrementGenerated 는 posts_generated 를 $inc 로 1 올려 동시 생성에서도 갱신이 유실되지 않게 한다.
func (r *TopicRepository) IncrementGenerated(ctx context.Context, ownerID, id primitive.ObjectID, at time.Time) error {
	res, err := r.col.UpdateOne(ctx, ownedTopic(ownerID, id), incrementGeneratedUpdate(at))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TopicRepository) Count(ctx context.Context, ownerID primitive.ObjectID, status models.TopicStatus) (int64, error) {
	filter := bson.M{"owner_id": ownerID}
	if status != "" {
		filter["status"] = status
	}
	return r.col.CountDocuments(ctx, filter)
}

func (r *TopicRepository) CountAll(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{})
}
