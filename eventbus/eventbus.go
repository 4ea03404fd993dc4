package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RetryDelays 는 재시도 횟수(1-based)별 지연 시간이다. 지연 토픽 이름에 그대로 들어간다.
var RetryDelays = []time.Duration{
	10 * time.Second,
	30 * time.Second,
	1 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
}

// Topic 은 기본 토픽과 그에 딸린 지연 재시도 토픽, DLQ 토픽 이름을 관리한다.
type Topic struct {
	base string
}

func NewTopic(base string) Topic {
	return Topic{base: base}
}

func (t Topic) Base() string {
	return t.base
}

// DLQ 는 DLQ 토픽 이름을 반환한다 (예: autoblog.post.events.dlq).
func (t Topic) DLQ() string {
	return t.base + ".dlq"
}

// GetRetryTopics 는 모든 지연 재시도 토픽 이름을 반환한다 (예: base.retry.10s).
func (t Topic) GetRetryTopics() []string {
	topics := make([]string, len(RetryDelays))
	for i, delay := range RetryDelays {
		topics[i] = retryTopicName(t.base, delay)
	}
	return topics
}

// GetRetryTopic 은 다음 재시도 횟수(1-based)에 해당하는 지연 토픽 이름을 반환한다.
func (t Topic) GetRetryTopic(retryCount int) (string, error) {
	if retryCount <= 0 || retryCount > len(RetryDelays) {
		return "", ErrMaxRetryExceeded
	}
	return retryTopicName(t.base, RetryDelays[retryCount-1]), nil
}

func retryTopicName(base string, delay time.Duration) string {
	return fmt.Sprintf("%s.retry.%s", base, delay.String())
}

// Event 는 Kafka 메시지 값으로 직렬화되는 봉투다.
// Key 가 있으면 파티션 키로 사용되어 같은 테넌트의 이벤트 순서가 유지된다.
type Event struct {
	ID        string          `json:"id"`
	Key       string          `json:"key,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Retry     int             `json:"retry"`
	MaxRetry  int             `json:"max_retry"`
	LastError string          `json:"last_error,omitempty"`
}

// EventHandler 는 이벤트 처리 함수의 시그니처다. 에러를 반환하면 재시도 토픽으로 넘어간다.
type EventHandler func(ctx context.Context, event Event) error

// EventBus 는 이벤트 발행/구독의 추상화다.
type EventBus interface {
	Publish(ctx context.Context, topic string, event Event) error
	// Subscribe 는 기본 토픽을 구독하여 handler 를 실행한다.
	Subscribe(ctx context.Context, groupID string, topic Topic, handler EventHandler) error
	// StartRetryReinjector 는 지연 토픽을 구독하고 준비된 이벤트를 기본 토픽으로 재발행한다.
	StartRetryReinjector(ctx context.Context, groupID string, topic Topic) error
	Close()
}

var ErrMaxRetryExceeded = errors.New("eventbus: max retry exceeded")

var ErrRetryScheduleFailed = errors.New("eventbus: failed to schedule retry or dlq")
