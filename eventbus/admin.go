package eventbus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// EnsureTopics 는 기본 토픽, 모든 지연 토픽, DLQ 토픽을 만든다. 이미 있으면 성공으로 본다.
func EnsureTopics(brokers string, topic Topic, basePartitions int) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return fmt.Errorf("create kafka admin client: %w", err)
	}
	defer admin.Close()

	specs := make([]kafka.TopicSpecification, 0, 2+len(RetryDelays))
	specs = append(specs,
		kafka.TopicSpecification{Topic: topic.Base(), NumPartitions: basePartitions, ReplicationFactor: 1},
		kafka.TopicSpecification{Topic: topic.DLQ(), NumPartitions: 1, ReplicationFactor: 1},
	)
	for _, retryTopic := range topic.GetRetryTopics() {
		specs = append(specs, kafka.TopicSpecification{
			Topic:             retryTopic,
			NumPartitions:     basePartitions,
			ReplicationFactor: 1,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, specs)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}

	for _, r := range results {
		code := r.Error.Code()
		if code != kafka.ErrNoError && code != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("create topic %s: %v", r.Topic, r.Error)
		}
	}
	return nil
}

// EnsureAllTopics 는 AllTopics 에 대해 EnsureTopics 를 호출하고 첫 번째 에러를 반환한다.
func EnsureAllTopics(brokers string, basePartitions int) error {
	for _, t := range AllTopics {
		if err := EnsureTopics(brokers, t, basePartitions); err != nil {
			return err
		}
	}
	return nil
}

// ParseRetryFromTopicName 은 ".retry." 뒤의 지연 시간을 파싱한다.
// 예: "autoblog.post.events.retry.1m0s" -> 1m0s
func ParseRetryFromTopicName(name string) (time.Duration, bool) {
	idx := strings.LastIndex(name, ".retry.")
	if idx == -1 || idx+7 >= len(name) {
		return 0, false
	}
	d, err := time.ParseDuration(name[idx+7:])
	if err != nil {
		return 0, false
	}
	return d, true
}
