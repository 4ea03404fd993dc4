package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"autoblog/models"
)

type SettingsRepository struct {
	col *mongo.Collection
}

func NewSettingsRepository(db *mongo.Database) *SettingsRepository {
	return &SettingsRepository{col: db.Collection("settings")}
}

// Get 은 문서가 없으면 0 값 설정을 반환한다.
func (r *SettingsRepository) Get(ctx context.Context) (*models.SystemSettings, error) {
	var s models.SystemSettings
	err := r.col.FindOne(ctx, bson.M{"_id": models.SystemSettingsID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &models.SystemSettings{ID: models.SystemSettingsID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SettingsRepository) Save(ctx context.Context, s *models.SystemSettings) error {
	s.ID = models.SystemSettingsID
	s.UpdatedAt = time.Now()
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": s.ID}, s, options.Replace().SetUpsert(true))
	return err
}
