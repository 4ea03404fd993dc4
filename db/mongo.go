package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"autoblog/config"
	"autoblog/logger"
)

const (
	CollectionUsers               = "users"
	CollectionTopics              = "topics"
	CollectionPosts               = "posts"
	CollectionGenerationHistories = "generation_histories"
	CollectionAILogs              = "ai_logs"
	CollectionSitemaps            = "sitemaps"
	CollectionSettings            = "settings"
)

var (
	clientOnce sync.Once
	client     *mongo.Client
	db         *mongo.Database
)

// Init 은 전역 Mongo 클라이언트를 연결하고 인덱스를 보장한다.
func Init(ctx context.Context, cfg config.MongoConfig) error {
	var initErr error
	clientOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		cl, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
		if err != nil {
			initErr = fmt.Errorf("connect mongo: %w", err)
			return
		}
		if err := cl.Ping(ctx, readpref.Primary()); err != nil {
			initErr = fmt.Errorf("ping mongo: %w", err)
			return
		}
		client = cl
		db = client.Database(cfg.DBName)

		if err := EnsureIndexes(ctx, db); err != nil {
			initErr = fmt.Errorf("ensure indexes: %w", err)
			return
		}
		logger.Log.Infof("MongoDB connected (db=%s) and indexes ensured", cfg.DBName)
	})
	return initErr
}

func Client() *mongo.Client     { return client }
func Database() *mongo.Database { return db }

// Disconnect 는 프로세스 종료 시 호출한다.
func Disconnect(ctx context.Context) {
	if client == nil {
		return
	}
	if err := client.Disconnect(ctx); err != nil {
		logger.Log.Errorf("mongo disconnect: %v", err)
	}
}

func EnsureIndexes(ctx context.Context, d *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		CollectionUsers: {
			{
				Keys:    bson.D{{Key: "github_id", Value: 1}},
				Options: options.Index().SetName("uniq_github_id").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("idx_email"),
			},
			{
				Keys:    bson.D{{Key: "subdomain", Value: 1}},
				Options: options.Index().SetName("uniq_subdomain").SetUnique(true).SetSparse(true),
			},
			{
				Keys:    bson.D{{Key: "custom_domain", Value: 1}},
				Options: options.Index().SetName("uniq_custom_domain").SetUnique(true).SetSparse(true),
			},
		},
		CollectionTopics: {
			{
				Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "name", Value: 1}},
				Options: options.Index().SetName("uniq_owner_name").SetUnique(true),
			},
			// 배치 선택 순서: posts_generated asc, priority desc
			{
				Keys: bson.D{
					{Key: "owner_id", Value: 1},
					{Key: "status", Value: 1},
					{Key: "posts_generated", Value: 1},
					{Key: "priority", Value: -1},
				},
				Options: options.Index().SetName("idx_owner_status_selection"),
			},
		},
		CollectionPosts: {
			{
				Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "slug", Value: 1}},
				Options: options.Index().SetName("uniq_owner_slug").SetUnique(true),
			},
			{
				Keys: bson.D{
					{Key: "owner_id", Value: 1},
					{Key: "status", Value: 1},
					{Key: "published_at", Value: -1},
				},
				Options: options.Index().SetName("idx_owner_status_published_desc"),
			},
			{
				Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "categories", Value: 1}},
				Options: options.Index().SetName("idx_owner_categories"),
			},
			{
				Keys:    bson.D{{Key: "topic_id", Value: 1}},
				Options: options.Index().SetName("idx_topic_id"),
			},
		},
		CollectionGenerationHistories: {
			{
				Keys: bson.D{
					{Key: "owner_id", Value: 1},
					{Key: "status", Value: 1},
					{Key: "date", Value: -1},
				},
				Options: options.Index().SetName("idx_owner_status_date_desc"),
			},
		},
		CollectionAILogs: {
			{
				Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "requested_at", Value: -1}},
				Options: options.Index().SetName("idx_owner_requested_at_desc"),
			},
		},
	}

	for name, models := range indexes {
		if _, err := d.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
