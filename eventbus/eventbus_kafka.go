package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"autoblog/logger"
)

const headerEventID = "event-id"

// KafkaEventBus 는 confluent-kafka-go 기반 EventBus 구현체다.
type KafkaEventBus struct {
	Producer *kafka.Producer
	Brokers  string
}

func NewKafkaEventBus(brokers string) (*KafkaEventBus, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "all",
		"retries":           5,
	})
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	// 전달 보고서와 클라이언트 에러를 로그로 흘려보낸다.
	go func() {
		for e := range p.Events() {
			switch ev := e.(type) {
			case *kafka.Message:
				if ev.TopicPartition.Error != nil {
					logger.Log.Errorf("kafka delivery failed %v: %v", ev.TopicPartition, ev.TopicPartition.Error)
				}
			case kafka.Error:
				logger.Log.Errorf("kafka error: %v", ev)
			}
		}
	}()

	return &KafkaEventBus{Producer: p, Brokers: brokers}, nil
}

func (k *KafkaEventBus) Close() {
	if k.Producer == nil {
		return
	}
	if remaining := k.Producer.Flush(5000); remaining > 0 {
		logger.Log.Warnf("%d kafka messages still queued after flush", remaining)
	}
	k.Producer.Close()
	logger.Log.Info("kafka producer closed")
}

// Publish 는 이벤트를 발행하고 전달 보고를 기다린다.
func (k *KafkaEventBus) Publish(ctx context.Context, topic string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	key := event.Key
	if key == "" {
		key = event.ID
	}

	deliveryChan := make(chan kafka.Event, 1)
	err = k.Producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          data,
		Key:            []byte(key),
		Headers:        []kafka.Header{{Key: headerEventID, Value: []byte(event.ID)}},
	}, deliveryChan)
	if err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}

	select {
	case ev := <-deliveryChan:
		m, ok := ev.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event %T", ev)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("deliver to %s: %w", topic, m.TopicPartition.Error)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (k *KafkaEventBus) newConsumer(groupID string, topics []string) (*kafka.Consumer, error) {
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":             k.Brokers,
		"group.id":                      groupID,
		"auto.offset.reset":             "earliest",
		"enable.auto.commit":            false,
		"partition.assignment.strategy": "range",
	})
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	if err := c.SubscribeTopics(topics, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("subscribe %v: %w", topics, err)
	}
	return c, nil
}

// Subscribe 는 기본 토픽을 구독한다. handler 가 실패하면 다음 지연 토픽으로,
// 재시도를 모두 소진하면 DLQ 로 보낸 뒤 오프셋을 커밋한다.
func (k *KafkaEventBus) Subscribe(ctx context.Context, groupID string, topic Topic, handler EventHandler) error {
	c, err := k.newConsumer(groupID, []string{topic.Base()})
	if err != nil {
		return err
	}
	defer c.Close()

	logger.InfoWithFields("kafka consumer started", logger.Fields{"group_id": groupID, "topic": topic.Base()})

	for {
		select {
		case <-ctx.Done():
			logger.Log.Infof("kafka consumer %s stopping", groupID)
			return ctx.Err()
		default:
		}

		msg, err := c.ReadMessage(100 * time.Millisecond)
		if err != nil {
			var kerr kafka.Error
			if errors.As(err, &kerr) && kerr.IsFatal() {
				return fmt.Errorf("kafka consumer fatal error: %w", err)
			}
			continue
		}

		var evt Event
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Log.Errorf("bad event payload on %s, skipping: %v", *msg.TopicPartition.Topic, err)
			_, _ = c.CommitMessage(msg)
			continue
		}
		if evt.MaxRetry <= 0 || evt.MaxRetry > len(RetryDelays) {
			evt.MaxRetry = len(RetryDelays)
		}

		if herr := handler(ctx, evt); herr != nil {
			if err := k.routeFailure(ctx, topic, evt, herr); err != nil {
				// 재시도/DLQ 발행이 실패하면 커밋하지 않아 같은 메시지를 다시 받는다.
				logger.Log.Errorf("event %s: %v", evt.ID, err)
				continue
			}
		}

		if _, err := c.CommitMessage(msg); err != nil {
			logger.Log.Errorf("commit offset: %v", err)
		}
	}
}

// routeFailure 는 실패한 이벤트를 다음 지연 토픽 또는 DLQ 로 발행한다.
func (k *KafkaEventBus) routeFailure(ctx context.Context, topic Topic, evt Event, cause error) error {
	evt.LastError = cause.Error()
	next := evt.Retry + 1
	if next > evt.MaxRetry {
		logger.WarnWithFields("event exhausted retries, sending to dlq", logger.Fields{
			"event_id": evt.ID, "dlq": topic.DLQ(), "error": cause.Error(),
		})
		if err := k.Publish(ctx, topic.DLQ(), evt); err != nil {
			return fmt.Errorf("%w: %v", ErrRetryScheduleFailed, err)
		}
		return nil
	}

	retryTopic, err := topic.GetRetryTopic(next)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRetryScheduleFailed, err)
	}
	evt.Retry = next
	logger.WarnWithFields("event failed, scheduling retry", logger.Fields{
		"event_id": evt.ID, "retry": evt.Retry, "max_retry": evt.MaxRetry, "topic": retryTopic, "error": cause.Error(),
	})
	if err := k.Publish(ctx, retryTopic, evt); err != nil {
		return fmt.Errorf("%w: %v", ErrRetryScheduleFailed, err)
	}
	return nil
}

// StartRetryReinjector 는 지연 토픽을 구독하고, 메시지 타임스탬프 + 지연이 지난 이벤트를
// 기본 토픽으로 재발행한다.
func (k *KafkaEventBus) StartRetryReinjector(ctx context.Context, groupID string, topic Topic) error {
	retryTopics := topic.GetRetryTopics()
	c, err := k.newConsumer(groupID, retryTopics)
	if err != nil {
		return err
	}
	defer c.Close()

	logger.InfoWithFields("retry reinjector started", logger.Fields{
		"group_id": groupID, "topics": strings.Join(retryTopics, ","),
	})

	for {
		select {
		case <-ctx.Done():
			logger.Log.Infof("retry reinjector %s stopping", groupID)
			return ctx.Err()
		default:
		}

		msg, err := c.ReadMessage(100 * time.Millisecond)
		if err != nil {
			var kerr kafka.Error
			if errors.As(err, &kerr) {
				if kerr.Code() == kafka.ErrTimedOut {
					continue
				}
				if kerr.IsFatal() {
					return fmt.Errorf("retry reinjector fatal error: %w", err)
				}
			}
			logger.Log.Errorf("retry reinjector read: %v", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		topicName := *msg.TopicPartition.Topic
		delay, ok := ParseRetryFromTopicName(topicName)
		if !ok {
			logger.Log.Errorf("cannot parse retry delay from %s, skipping", topicName)
			_, _ = c.CommitMessage(msg)
			continue
		}

		if wait := time.Until(msg.Timestamp.Add(delay)); wait > 0 {
			// 컨슈머 루프 전체가 막히지 않도록 짧게만 잔 뒤 같은 오프셋부터 다시 읽는다.
			time.Sleep(clampDuration(wait, 50*time.Millisecond, 500*time.Millisecond))
			if err := c.Seek(msg.TopicPartition, 0); err != nil {
				logger.Log.Errorf("seek %v: %v", msg.TopicPartition, err)
			}
			continue
		}

		var evt Event
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Log.Errorf("bad retry payload on %s, skipping: %v", topicName, err)
			_, _ = c.CommitMessage(msg)
			continue
		}

		if err := k.Publish(ctx, topic.Base(), evt); err != nil {
			logger.Log.Errorf("reinject event %s: %v", evt.ID, err)
			continue
		}
		logger.Log.Infof("reinjected event %s from %s (retry %d)", evt.ID, topicName, evt.Retry)

		if _, err := c.CommitMessage(msg); err != nil {
			logger.Log.Errorf("commit after reinject: %v", err)
		}
	}
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
