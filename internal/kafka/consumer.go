package kafka

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"muse-go/internal/config"
)

// MessageHandler is a function type for processing consumed Kafka messages.
type MessageHandler func(ctx context.Context, msg *kafka.Message) error

// MessageConsumer defines the interface for a Kafka message consumer.
type MessageConsumer interface {
	Consume(ctx context.Context, topics []string, groupID string, handler MessageHandler) error
	Close()
}

// confluentKafkaConsumer is an implementation of MessageConsumer using confluent-kafka-go.
type confluentKafkaConsumer struct {
	consumer *kafka.Consumer
	cfg      config.KafkaConfig
	groupID  string
}

// NewConfluentKafkaConsumer creates a consumer; the underlying client is created in Consume
// once the group id is known.
func NewConfluentKafkaConsumer(cfg config.KafkaConfig) (MessageConsumer, error) {
	return &confluentKafkaConsumer{cfg: cfg}, nil
}

// Consume starts consuming messages from the specified topics and group.
// It blocks until ctx is canceled or a fatal Kafka error occurs.
func (c *confluentKafkaConsumer) Consume(ctx context.Context, topics []string, groupID string, handler MessageHandler) error {
	if len(topics) == 0 {
		return fmt.Errorf("kafka consumer: no topics specified")
	}
	c.groupID = groupID
	logger := log.With("group", groupID)

	configMap := &kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(c.cfg.Brokers, ","),
		"group.id":           c.groupID,
		"auto.offset.reset":  "latest", // 离线期间的推送没有意义，只处理新事件
		"enable.auto.commit": "false",  // 处理完成后手动提交
		"security.protocol":  c.cfg.Protocol,
	}
	if c.cfg.ClientID != "" {
		_ = configMap.SetKey("client.id", c.cfg.ClientID)
	}

	consumer, err := kafka.NewConsumer(configMap)
	if err != nil {
		return fmt.Errorf("failed to create Kafka consumer for group %s: %w", groupID, err)
	}
	c.consumer = consumer

	if err := c.consumer.SubscribeTopics(topics, nil); err != nil {
		_ = c.consumer.Close()
		return fmt.Errorf("failed to subscribe to topics %v for group %s: %w", topics, groupID, err)
	}

	logger.Info("Kafka consumer started, waiting for messages", "topics", topics)

	for {
		select {
		case <-ctx.Done():
			logger.Info("context canceled, consumer loop finished")
			return nil
		default:
		}

		ev := c.consumer.Poll(1000)
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			if err := handler(ctx, e); err != nil {
				logger.Error("error processing Kafka message", "topic", *e.TopicPartition.Topic, "offset", e.TopicPartition.Offset, "err", err)
				continue
			}
			if _, err := c.consumer.CommitMessage(e); err != nil {
				logger.Warn("failed to commit offset", "topic", *e.TopicPartition.Topic, "offset", e.TopicPartition.Offset, "err", err)
			}
		case kafka.Error:
			logger.Error("Kafka consumer error", "err", e, "code", e.Code(), "fatal", e.IsFatal(), "retriable", e.IsRetriable())
			if e.IsFatal() {
				return e
			}
		case kafka.AssignedPartitions:
			logger.Info("partitions assigned", "partitions", e.Partitions)
			_ = c.consumer.Assign(e.Partitions)
		case kafka.RevokedPartitions:
			logger.Info("partitions revoked", "partitions", e.Partitions)
			_ = c.consumer.Unassign()
		}
	}
}

// Close closes the Kafka consumer.
func (c *confluentKafkaConsumer) Close() {
	if c.consumer == nil {
		return
	}
	log.Info("Closing Kafka consumer", "group", c.groupID)
	if err := c.consumer.Close(); err != nil {
		log.Error("error closing Kafka consumer", "group", c.groupID, "err", err)
	}
	c.consumer = nil
}
