package repositories

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"autoblog/models"
)

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection("users")}
}

func (r *UserRepository) Insert(ctx context.Context, u *models.User) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	res, err := r.col.InsertOne(ctx, u)
	if err != nil {
		return translate(err)
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByGithubID(ctx context.Context, githubID string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"github_id": githubID})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

// FindBySubdomain 과 FindByCustomDomain 은 활성 사용자만 찾는다.
func (r *UserRepository) FindBySubdomain(ctx context.Context, subdomain string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"subdomain": subdomain, "is_active": true})
}

func (r *UserRepository) FindByCustomDomain(ctx context.Context, domain string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"custom_domain": domain, "is_active": true})
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{})
}

func (r *UserRepository) CountActive(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"is_active": true})
}

// UpdateFields 는 주어진 필드만 $set 하고 updated_at 을 갱신한다.
func (r *UserRepository) UpdateFields(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	update := bson.M{"updated_at": time.Now()}
	for k, v := range set {
		update[k] = v
	}
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": update})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearCustomDomain 은 sparse unique 인덱스에서 빠지도록 필드를 제거한다.
func (r *UserRepository) ClearCustomDomain(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{
		"$unset": bson.M{"custom_domain": "", "domain_error": "", "domain_verified_at": ""},
		"$set": bson.M{
			"domain_status":          models.DomainActive,
			"domain_verify_attempts": 0,
			"updated_at":             time.Now(),
		},
	})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementVerifyAttempts 는 검증 실패 횟수를 원자적으로 올리고 오류를 기록한다.
func (r *UserRepository) IncrementVerifyAttempts(ctx context.Context, id primitive.ObjectID, status models.DomainStatus, reason string) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{"domain_verify_attempts": 1},
		"$set": bson.M{"domain_status": status, "domain_error": reason, "updated_at": time.Now()},
	})
	return translate(err)
}

type UserQuery struct {
	Pagination
	Search string
	Role   string
}

func (r *UserRepository) List(ctx context.Context, q UserQuery) ([]models.User, int64, error) {
	filter := bson.M{}
	if q.Search != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		filter["$or"] = []bson.M{{"name": rx}, {"email": rx}, {"subdomain": rx}}
	}
	if q.Role != "" {
		filter["role"] = q.Role
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := r.col.Find(ctx, filter, q.findOptions().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	users, err := decodeAll[models.User](ctx, cur)
	return users, total, err
}

// ListAutoGenerate 는 자동 생성이 켜진 활성 테넌트를 반환한다.
func (r *UserRepository) ListAutoGenerate(ctx context.Context) ([]models.User, error) {
	cur, err := r.col.Find(ctx, bson.M{"is_active": true, "settings.content.auto_generate": true})
	if err != nil {
		return nil, err
	}
	return decodeAll[models.User](ctx, cur)
}

func (r *UserRepository) ListActive(ctx context.Context) ([]models.User, error) {
	cur, err := r.col.Find(ctx, bson.M{"is_active": true})
	if err != nil {
		return nil, err
	}
	return decodeAll[models.User](ctx, cur)
}

// ListPendingDomains 는 재검증 대상(pending/failed, 시도 횟수 미만) 커스텀 도메인 사용자를 반환한다.
func (r *UserRepository) ListPendingDomains(ctx context.Context, maxAttempts int) ([]models.User, error) {
	filter := bson.M{
		"custom_domain":          bson.M{"$exists": true, "$ne": ""},
		"domain_status":          bson.M{"$in": []models.DomainStatus{models.DomainPending, models.DomainFailed}},
		"domain_verify_attempts": bson.M{"$lt": maxAttempts},
	}
	cur, err := r.col.Find(ctx, filter, options.Find().SetLimit(200))
	if err != nil {
		return nil, err
	}
	return decodeAll[models.User](ctx, cur)
}
