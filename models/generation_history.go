package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type GenerationStatus string

const (
	GenerationProcessing GenerationStatus = "processing"
	GenerationCompleted  GenerationStatus = "completed"
	GenerationFailed     GenerationStatus = "failed"
)

// GenerationHistory 는 배치 한 번의 입력과 결과를 남기는 감사 기록이다.
// processing 으로 생성되고 completed/failed 로 정확히 한 번 확정된다.
// Collection: generation_histories
type GenerationHistory struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	OwnerID        primitive.ObjectID   `bson:"owner_id" json:"owner_id"`
	Date           time.Time            `bson:"date" json:"date"`
	RequestedCount int                  `bson:"requested_count" json:"requested_count"`
	SuccessCount   int                  `bson:"success_count" json:"success_count"`
	Status         GenerationStatus     `bson:"status" json:"status"`
	Error          string               `bson:"error,omitempty" json:"error,omitempty"`
	TopicIDs       []primitive.ObjectID `bson:"topic_ids" json:"topic_ids"`
	PostIDs        []primitive.ObjectID `bson:"post_ids" json:"post_ids"`
	Trigger        string               `bson:"trigger,omitempty" json:"trigger,omitempty"`
	CompletedAt    *time.Time           `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}
