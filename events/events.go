package events

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventType 이벤트 타입 정의
type EventType string

const (
	PostCreated     EventType = "post.created"
	PostPublished   EventType = "post.published"
	PostUnpublished EventType = "post.unpublished"
	PostDeleted     EventType = "post.deleted"

	BatchCompleted EventType = "generation.batch_completed"
	BatchFailed    EventType = "generation.batch_failed"

	DomainChanged  EventType = "domain.changed"
	DomainVerified EventType = "domain.verified"
)

// BaseEvent 모든 이벤트의 기본 구조
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

func (e BaseEvent) GetType() EventType {
	return e.Type
}

// PostEvent 는 글의 생성/상태 전이를 알린다. 프로세서는 이를 받아 sitemap 을 재생성하고
// API 는 검색 인덱스를 갱신한다.
type PostEvent struct {
	BaseEvent
	OwnerID primitive.ObjectID `json:"owner_id"`
	PostID  primitive.ObjectID `json:"post_id"`
	Slug    string             `json:"slug"`
	Status  string             `json:"status"`
}

// BatchEvent 는 생성 배치 하나의 결과 요약이다.
type BatchEvent struct {
	BaseEvent
	OwnerID        primitive.ObjectID   `json:"owner_id"`
	HistoryID      primitive.ObjectID   `json:"history_id"`
	RequestedCount int                  `json:"requested_count"`
	SuccessCount   int                  `json:"success_count"`
	PostIDs        []primitive.ObjectID `json:"post_ids"`
	Error          string               `json:"error,omitempty"`
}

// DomainEvent 는 테넌트의 호스트 매핑이 바뀌었음을 알린다. 이전 호스트는 캐시 무효화에 사용한다.
type DomainEvent struct {
	BaseEvent
	OwnerID      primitive.ObjectID `json:"owner_id"`
	Hosts        []string           `json:"hosts"`
	DomainStatus string             `json:"domain_status"`
}
