package eventbus

import (
	"context"

	"autoblog/logger"
)

// NopEventBus 는 Kafka 가 설정되지 않은 개발 환경에서 발행을 버린다.
type NopEventBus struct{}

func (NopEventBus) Publish(ctx context.Context, topic string, event Event) error {
	logger.Log.Debugf("eventbus disabled, dropping event %s for %s", event.ID, topic)
	return nil
}

func (NopEventBus) Subscribe(ctx context.Context, groupID string, topic Topic, handler EventHandler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (NopEventBus) StartRetryReinjector(ctx context.Context, groupID string, topic Topic) error {
	<-ctx.Done()
	return ctx.Err()
}

func (NopEventBus) Close() {}

// New 는 brokers 가 비어 있으면 NopEventBus 를, 아니면 Kafka 구현을 반환한다.
func New(brokers string) (EventBus, error) {
	if brokers == "" {
		logger.Log.Warn("KAFKA_BOOTSTRAP_SERVERS not set, events are disabled")
		return NopEventBus{}, nil
	}
	return NewKafkaEventBus(brokers)
}
