package musetypes

import "time"

// EventType 标识通过 WebSocket 推送给客户端的事件种类。
type EventType string

const (
	EventMessageCreated    EventType = "message.created"
	EventDiscussionCreated EventType = "discussion.created"
	EventMessageAck        EventType = "message.ack"
	EventError             EventType = "error"
)

// ChatEvent is published to Kafka by the API server and fanned out by the chat server
// to every connected recipient.
type ChatEvent struct {
	Type         EventType `json:"type"`
	RecipientID  uint      `json:"recipientId"`
	DiscussionID uint      `json:"discussionId"`
	MessageID    uint      `json:"messageId,omitempty"`
	SenderID     uint      `json:"senderId,omitempty"`
	Text         string    `json:"text,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// InboundMessage 是客户端通过 WebSocket 发送的消息。
type InboundMessage struct {
	ClientMsgID  string `json:"clientMsgId,omitempty"`
	DiscussionID uint   `json:"discussionId"`
	Text         string `json:"text"`
}

// OutboundAck 确认一条入站消息已经持久化，或者携带错误。
type OutboundAck struct {
	Type        EventType `json:"type"`
	ClientMsgID string    `json:"clientMsgId,omitempty"`
	MessageID   uint      `json:"messageId,omitempty"`
	Error       string    `json:"error,omitempty"`
}
