package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// NewJSONEvent 는 payload 를 JSON 으로 인코딩해 Event 를 만든다.
// id 가 비어 있으면 나노초 타임스탬프 기반 ID 를 쓴다.
func NewJSONEvent(id string, payload any, maxRetry int) (Event, error) {
	if maxRetry <= 0 || maxRetry > len(RetryDelays) {
		maxRetry = len(RetryDelays)
	}
	if id == "" {
		id = fmt.Sprintf("%d", time.Now().UnixNano())
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal payload: %w", err)
	}
	return Event{
		ID:       id,
		Payload:  b,
		MaxRetry: maxRetry,
	}, nil
}

// WithKey 는 파티션 키를 지정한 복사본을 반환한다.
func (e Event) WithKey(key string) Event {
	e.Key = key
	return e
}

// DecodeJSON 은 Event.Payload 를 T 로 언마샬한다.
func DecodeJSON[T any](evt Event) (T, error) {
	var out T
	if err := json.Unmarshal(evt.Payload, &out); err != nil {
		var zero T
		return zero, fmt.Errorf("unmarshal payload: %w", err)
	}
	return out, nil
}

// SubscribeJSON 은 JSON 페이로드를 디코딩해 handler 에 넘기는 Subscribe 헬퍼다.
func SubscribeJSON[T any](ctx context.Context, bus EventBus, groupID string, topic Topic, handler func(ctx context.Context, payload T, meta Event) error) error {
	return bus.Subscribe(ctx, groupID, topic, func(ctx context.Context, evt Event) error {
		v, err := DecodeJSON[T](evt)
		if err != nil {
			return err
		}
		return handler(ctx, v, evt)
	})
}
