package kafkahandlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"muse-go/internal/musetypes"
)

type recordingDeliverer struct {
	delivered map[uint][][]byte
}

func (r *recordingDeliverer) DeliverToUser(userID uint, payload []byte) bool {
	if r.delivered == nil {
		r.delivered = make(map[uint][][]byte)
	}
	r.delivered[userID] = append(r.delivered[userID], payload)
	return userID == 1
}

func TestHandleChatEventDeliversToRecipient(t *testing.T) {
	d := &recordingDeliverer{}
	h := NewChatEventConsumerLogic(d)

	payload, err := json.Marshal(musetypes.ChatEvent{Type: musetypes.EventMessageCreated, RecipientID: 1, DiscussionID: 5, Text: "hi"})
	require.NoError(t, err)

	require.NoError(t, h.HandleChatEvent(context.Background(), &kafka.Message{Value: payload}))
	require.Len(t, d.delivered[1], 1)
	assert.JSONEq(t, string(payload), string(d.delivered[1][0]))

	// 离线用户同样视为处理成功
	offline, err := json.Marshal(musetypes.ChatEvent{Type: musetypes.EventMessageCreated, RecipientID: 2})
	require.NoError(t, err)
	require.NoError(t, h.HandleChatEvent(context.Background(), &kafka.Message{Value: offline}))
}

func TestHandleChatEventSkipsMalformed(t *testing.T) {
	d := &recordingDeliverer{}
	h := NewChatEventConsumerLogic(d)

	require.NoError(t, h.HandleChatEvent(context.Background(), &kafka.Message{Value: []byte("{not json")}))
	require.NoError(t, h.HandleChatEvent(context.Background(), &kafka.Message{Value: []byte(`{"type":"message.created"}`)}))
	assert.Empty(t, d.delivered)
}
