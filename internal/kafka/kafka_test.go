package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"muse-go/internal/musetypes"
)

type sentMessage struct {
	topic   string
	key     []byte
	payload []byte
}

type fakeProducer struct {
	sent []sentMessage
	err  error
}

func (f *fakeProducer) SendMessage(_ context.Context, topic string, key []byte, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{topic: topic, key: key, payload: payload})
	return nil
}

func (f *fakeProducer) Close() {}

func TestChatEventPublisherKeysByRecipient(t *testing.T) {
	p := &fakeProducer{}
	pub := NewChatEventPublisher(p, "chat-events")

	ev := musetypes.ChatEvent{
		Type:         musetypes.EventMessageCreated,
		RecipientID:  12,
		DiscussionID: 3,
		MessageID:    99,
		SenderID:     4,
		Text:         "nice hook",
		Timestamp:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, pub.PublishChatEvent(context.Background(), ev))

	require.Len(t, p.sent, 1)
	assert.Equal(t, "chat-events", p.sent[0].topic)
	assert.Equal(t, "12", string(p.sent[0].key))

	var decoded musetypes.ChatEvent
	require.NoError(t, json.Unmarshal(p.sent[0].payload, &decoded))
	assert.Equal(t, ev, decoded)
}

func TestChatEventPublisherPropagatesError(t *testing.T) {
	boom := errors.New("broker down")
	pub := NewChatEventPublisher(&fakeProducer{err: boom}, "t")
	err := pub.PublishChatEvent(context.Background(), musetypes.ChatEvent{RecipientID: 1})
	assert.ErrorIs(t, err, boom)
}
