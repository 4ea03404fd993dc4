package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TopicStatus string

const (
	TopicActive   TopicStatus = "active"
	TopicInactive TopicStatus = "inactive"
)

// Topic 은 반복 생성의 대상이 되는 주제이다.
// Collection: topics
type Topic struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID         primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Name            string             `bson:"name" json:"name"`
	Description     string             `bson:"description" json:"description"`
	Keywords        []string           `bson:"keywords" json:"keywords"`
	Categories      []string           `bson:"categories" json:"categories"`
	Priority        int                `bson:"priority" json:"priority"`
	Status          TopicStatus        `bson:"status" json:"status"`
	PostsGenerated  int64              `bson:"posts_generated" json:"posts_generated"`
	LastGeneratedAt *time.Time         `bson:"last_generated_at,omitempty" json:"last_generated_at,omitempty"`
	PromptTemplate  string             `bson:"prompt_template,omitempty" json:"prompt_template,omitempty"`
	FeedURL         string             `bson:"feed_url,omitempty" json:"feed_url,omitempty"`
	ReferenceURLs   []string           `bson:"reference_urls,omitempty" json:"reference_urls,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}
