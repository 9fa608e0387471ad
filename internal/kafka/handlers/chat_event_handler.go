package kafkahandlers

import (
	"context"
	"encoding/json"

	"github.com/charmbracelet/log"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"muse-go/internal/musetypes"
)

// Deliverer 把事件推送给某个用户当前所有的 WebSocket 连接，返回是否有在线连接。
type Deliverer interface {
	DeliverToUser(userID uint, payload []byte) bool
}

// ChatEventConsumerLogic 消费聊天事件并转发给在线的接收者。
type ChatEventConsumerLogic struct {
	deliverer Deliverer
}

// NewChatEventConsumerLogic creates a new instance of ChatEventConsumerLogic.
func NewChatEventConsumerLogic(d Deliverer) *ChatEventConsumerLogic {
	if d == nil {
		log.Fatal("Deliverer cannot be nil")
	}
	return &ChatEventConsumerLogic{deliverer: d}
}

// HandleChatEvent 是传给 Kafka consumer 的 MessageHandler。
// 无法解析的消息被跳过（返回 nil），以免阻塞分区。
func (h *ChatEventConsumerLogic) HandleChatEvent(ctx context.Context, msg *kafka.Message) error {
	var ev musetypes.ChatEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		log.Warn("skipping malformed chat event", "key", string(msg.Key), "err", err)
		return nil
	}
	if ev.RecipientID == 0 {
		log.Warn("skipping chat event without recipient", "type", ev.Type, "discussion_id", ev.DiscussionID)
		return nil
	}

	if !h.deliverer.DeliverToUser(ev.RecipientID, msg.Value) {
		// 接收者不在线，客户端下次拉取讨论列表时会看到
		log.Debug("recipient offline", "recipient_id", ev.RecipientID, "discussion_id", ev.DiscussionID)
	}
	return nil
}
