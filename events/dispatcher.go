package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/eventbus"
)

// Dispatcher 는 도메인 이벤트를 만들어 토픽별로 발행한다.
type Dispatcher struct {
	bus    eventbus.EventBus
	source string
}

func NewDispatcher(bus eventbus.EventBus, source string) *Dispatcher {
	return &Dispatcher{bus: bus, source: source}
}

func (d *Dispatcher) base(t EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: time.Now(),
		Source:    d.source,
		Version:   "1.0",
	}
}

func (d *Dispatcher) PublishPost(ctx context.Context, t EventType, ownerID, postID primitive.ObjectID, slug, status string) error {
	e := PostEvent{
		BaseEvent: d.base(t),
		OwnerID:   ownerID,
		PostID:    postID,
		Slug:      slug,
		Status:    status,
	}
	return d.publish(ctx, eventbus.TopicPostEvents, e.ID, ownerID.Hex(), e)
}

func (d *Dispatcher) PublishBatch(ctx context.Context, e BatchEvent) error {
	t := BatchCompleted
	if e.Error != "" {
		t = BatchFailed
	}
	e.BaseEvent = d.base(t)
	return d.publish(ctx, eventbus.TopicGenerationEvents, e.ID, e.OwnerID.Hex(), e)
}

func (d *Dispatcher) PublishDomain(ctx context.Context, t EventType, ownerID primitive.ObjectID, hosts []string, status string) error {
	e := DomainEvent{
		BaseEvent:    d.base(t),
		OwnerID:      ownerID,
		Hosts:        hosts,
		DomainStatus: status,
	}
	return d.publish(ctx, eventbus.TopicDomainEvents, e.ID, ownerID.Hex(), e)
}

// publish 는 같은 테넌트의 이벤트가 같은 파티션에 쌓이도록 owner id 를 키로 쓴다.
func (d *Dispatcher) publish(ctx context.Context, topic eventbus.Topic, id, key string, payload any) error {
	evt, err := eventbus.NewJSONEvent(id, payload, 0)
	if err != nil {
		return fmt.Errorf("failed to build event: %w", err)
	}
	return d.bus.Publish(ctx, topic.Base(), evt.WithKey(key))
}

// PeekType 은 페이로드 전체를 디코딩하기 전에 top-level type 필드만 읽는다.
func PeekType(evt eventbus.Event) (EventType, error) {
	var peek struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(evt.Payload, &peek); err != nil {
		return "", err
	}
	return EventType(peek.Type), nil
}
