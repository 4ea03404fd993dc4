package repositories

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"autoblog/models"
)

type PostRepository struct {
	col *mongo.Collection
}

func NewPostRepository(db *mongo.Database) *PostRepository {
	return &PostRepository{col: db.Collection("posts")}
}

// PostQuery 의 Status 가 비어 있으면 deleted 를 제외한 모든 상태를 조회한다.
// Sort 는 "published_at"(기본), "created_at", "view_count" 중 하나이며 항상 내림차순이다.
type PostQuery struct {
	Pagination
	OwnerID  primitive.ObjectID
	Status   models.PostStatus
	TopicID  *primitive.ObjectID
	Category string
	Keyword  string
	Sort     string
}

func (q PostQuery) filter() bson.M {
	filter := bson.M{"owner_id": q.OwnerID}
	if q.Status != "" {
		filter["status"] = q.Status
	} else {
		filter["status"] = bson.M{"$ne": models.PostDeleted}
	}
	if q.TopicID != nil {
		filter["topic_id"] = *q.TopicID
	}
	if q.Category != "" {
		filter["categories"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(q.Category) + "$", Options: "i"}
	}
	if q.Keyword != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(q.Keyword), Options: "i"}
		filter["$or"] = []bson.M{{"title": rx}, {"keywords": rx}}
	}
	return filter
}

func (q PostQuery) sort() bson.D {
	switch q.Sort {
	case "created_at":
		return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
	case "view_count":
		return bson.D{{Key: "view_count", Value: -1}, {Key: "_id", Value: -1}}
	default:
		return bson.D{{Key: "published_at", Value: -1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
	}
}

// Insert 는 (owner_id, slug) 충돌 시 ErrDuplicate 를 반환한다.
func (r *PostRepository) Insert(ctx context.Context, p *models.Post) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	res, err := r.col.InsertOne(ctx, p)
	if err != nil {
		return translate(err)
	}
	p.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *PostRepository) FindByID(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Post, error) {
	var p models.Post
	if err := r.col.FindOne(ctx, bson.M{"_id": id, "owner_id": ownerID}).Decode(&p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *PostRepository) FindBySlug(ctx context.Context, ownerID primitive.ObjectID, slug string) (*models.Post, error) {
	var p models.Post
	if err := r.col.FindOne(ctx, bson.M{"owner_id": ownerID, "slug": slug}).Decode(&p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *PostRepository) List(ctx context.Context, q PostQuery) ([]models.Post, int64, error) {
	filter := q.filter()
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := r.col.Find(ctx, filter, q.findOptions().SetSort(q.sort()))
	if err != nil {
		return nil, 0, err
	}
	posts, err := decodeAll[models.Post](ctx, cur)
	return posts, total, err
}

// RecentByTopic 은 중복 제목을 피하기 위한 프롬프트 컨텍스트로 쓰인다.
func (r *PostRepository) RecentByTopic(ctx context.Context, ownerID, topicID primitive.ObjectID, limit int) ([]models.Post, error) {
	cur, err := r.col.Find(ctx,
		bson.M{"owner_id": ownerID, "topic_id": topicID, "status": bson.M{"$ne": models.PostDeleted}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Post](ctx, cur)
}

// ListPublished 는 sitemap 과 피드 생성을 위해 본문을 제외하고 반환한다.
func (r *PostRepository) ListPublished(ctx context.Context, ownerID primitive.ObjectID, limit int) ([]models.Post, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "published_at", Value: -1}}).
		SetProjection(bson.M{"content": 0})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.col.Find(ctx, bson.M{"owner_id": ownerID, "status": models.PostPublished}, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Post](ctx, cur)
}

// Related 는 같은 카테고리를 공유하는 다른 발행 글을 최신순으로 반환한다.
func (r *PostRepository) Related(ctx context.Context, p *models.Post, limit int) ([]models.Post, error) {
	if len(p.Categories) == 0 {
		return []models.Post{}, nil
	}
	cur, err := r.col.Find(ctx,
		bson.M{
			"owner_id":   p.OwnerID,
			"_id":        bson.M{"$ne": p.ID},
			"status":     models.PostPublished,
			"categories": bson.M{"$in": p.Categories},
		},
		options.Find().
			SetSort(bson.D{{Key: "published_at", Value: -1}}).
			SetLimit(int64(limit)).
			SetProjection(bson.M{"content": 0}),
	)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Post](ctx, cur)
}

type CategoryCount struct {
	Name  string `bson:"_id" json:"name"`
	Count int64  `bson:"count" json:"count"`
}

// Categories 는 발행 글의 카테고리별 글 수를 집계한다.
func (r *PostRepository) Categories(ctx context.Context, ownerID primitive.ObjectID) ([]CategoryCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"owner_id": ownerID, "status": models.PostPublished}}},
		{{Key: "$unwind", Value: "$categories"}},
		{{Key: "$group", Value: bson.M{"_id": "$categories", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	return decodeAll[CategoryCount](ctx, cur)
}

func (r *PostRepository) UpdateFields(ctx context.Context, ownerID, id primitive.ObjectID, set bson.M) (*models.Post, error) {
	update := bson.M{"updated_at": time.Now()}
	for k, v := range set {
		update[k] = v
	}
	var p models.Post
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "owner_id": ownerID},
		bson.M{"$set": update},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// IncrementViewCount increments view_count by 1.
func (r *PostRepository) IncrementViewCount(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$inc": bson.M{"view_count": 1}})
	return err
}

// UnsetTopic 은 주제가 삭제될 때 글에서 topic_id 를 제거한다. 글 자체는 남는다.
func (r *PostRepository) UnsetTopic(ctx context.Context, ownerID, topicID primitive.ObjectID) (int64, error) {
	res, err := r.col.UpdateMany(ctx,
		bson.M{"owner_id": ownerID, "topic_id": topicID},
		bson.M{"$unset": bson.M{"topic_id": ""}, "$set": bson.M{"updated_at": time.Now()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// CountByStatus 는 ownerID 가 nil 이면 전체 테넌트를 집계한다.
func (r *PostRepository) CountByStatus(ctx context.Context, ownerID *primitive.ObjectID) (map[models.PostStatus]int64, error) {
	match := bson.M{}
	if ownerID != nil {
		match["owner_id"] = *ownerID
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	rows, err := decodeAll[struct {
		Status models.PostStatus `bson:"_id"`
		Count  int64             `bson:"count"`
	}](ctx, cur)
	if err != nil {
		return nil, err
	}
	out := make(map[models.PostStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}
