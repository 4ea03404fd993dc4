package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPublished PostStatus = "published"
	PostArchived  PostStatus = "archived"
	PostDeleted   PostStatus = "deleted"
)

// Post 는 생성되었거나 직접 작성된 글이다. slug 는 owner 안에서 유일하다.
// Collection: posts
type Post struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OwnerID         primitive.ObjectID  `bson:"owner_id" json:"owner_id"`
	TopicID         *primitive.ObjectID `bson:"topic_id,omitempty" json:"topic_id,omitempty"`
	Title           string              `bson:"title" json:"title"`
	Slug            string              `bson:"slug" json:"slug"`
	Content         string              `bson:"content" json:"content"`
	Excerpt         string              `bson:"excerpt" json:"excerpt"`
	Keywords        []string            `bson:"keywords" json:"keywords"`
	Categories      []string            `bson:"categories" json:"categories"`
	MetaTitle       string              `bson:"meta_title" json:"meta_title"`
	MetaDescription string              `bson:"meta_description" json:"meta_description"`
	Status          PostStatus          `bson:"status" json:"status"`
	PublishedAt     *time.Time          `bson:"published_at,omitempty" json:"published_at,omitempty"`
	WordCount       int                 `bson:"word_count" json:"word_count"`
	ReadingTime     int                 `bson:"reading_time" json:"reading_time"`
	IsGenerated     bool                `bson:"is_generated" json:"is_generated"`
	GeneratedBy     string              `bson:"generated_by,omitempty" json:"generated_by,omitempty"`
	ViewCount       int64               `bson:"view_count" json:"view_count"`
	CreatedAt       time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `bson:"updated_at" json:"updated_at"`
}
