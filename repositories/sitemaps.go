package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"autoblog/models"
)

type SitemapRepository struct {
	col *mongo.Collection
}

func NewSitemapRepository(db *mongo.Database) *SitemapRepository {
	return &SitemapRepository{col: db.Collection("sitemaps")}
}

// Upsert 는 테넌트당 하나의 문서를 유지한다.
func (r *SitemapRepository) Upsert(ctx context.Context, s *models.Sitemap) error {
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": s.OwnerID}, s, options.Replace().SetUpsert(true))
	return err
}

func (r *SitemapRepository) FindByOwner(ctx context.Context, ownerID primitive.ObjectID) (*models.Sitemap, error) {
	var s models.Sitemap
	if err := r.col.FindOne(ctx, bson.M{"_id": ownerID}).Decode(&s); err != nil {
		return nil, translate(err)
	}
	return &s, nil
}
