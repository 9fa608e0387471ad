package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"muse-go/internal/musetypes"
)

// ChatEventPublisher 发布需要推送给在线用户的聊天事件。
type ChatEventPublisher interface {
	PublishChatEvent(ctx context.Context, ev musetypes.ChatEvent) error
}

type kafkaChatEventPublisher struct {
	producer MessageProducer
	topic    string
}

// NewChatEventPublisher 返回一个写入 topic 的 ChatEventPublisher，消息以接收者 id 为 key，
// 保证同一接收者的事件落在同一分区内有序。
func NewChatEventPublisher(producer MessageProducer, topic string) ChatEventPublisher {
	return &kafkaChatEventPublisher{producer: producer, topic: topic}
}

func (p *kafkaChatEventPublisher) PublishChatEvent(ctx context.Context, ev musetypes.ChatEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("序列化聊天事件失败: %w", err)
	}
	key := []byte(strconv.FormatUint(uint64(ev.RecipientID), 10))
	return p.producer.SendMessage(ctx, p.topic, key, payload)
}
