package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"muse-go/internal/musetypes"
)

func TestSendMessage(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	d, err := env.discussionService().ResolveOrCreateDiscussion(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	svc := NewMessageService(env.db, env.messages, env.discussions, env.publisher).(*messageService)
	sentAt := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return sentAt }

	msg, err := svc.SendMessage(ctx, alice.ID, d.ID, "  that bassline  ")
	require.NoError(t, err)
	assert.Equal(t, "that bassline", msg.Text)

	stored, err := env.discussions.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "that bassline", stored.LastMessageText)
	require.NotNil(t, stored.LastMessageAt)
	assert.True(t, stored.LastMessageAt.Equal(sentAt))

	events := env.publisher.Events()
	require.Len(t, events, 2) // discussion.created + message.created
	last := events[1]
	assert.Equal(t, musetypes.EventMessageCreated, last.Type)
	assert.Equal(t, bob.ID, last.RecipientID)
	assert.Equal(t, msg.ID, last.MessageID)
	assert.Equal(t, "that bassline", last.Text)
}

func TestSendMessageValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")
	d, err := env.discussionService().ResolveOrCreateDiscussion(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	svc := NewMessageService(env.db, env.messages, env.discussions, env.publisher)

	_, err = svc.SendMessage(ctx, alice.ID, d.ID, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = svc.SendMessage(ctx, carol.ID, d.ID, "hi")
	assert.ErrorIs(t, err, ErrNotParticipant)
	_, err = svc.SendMessage(ctx, alice.ID, 9999, "hi")
	assert.ErrorIs(t, err, ErrDiscussionNotFound)

	_, err = svc.ListMessages(ctx, carol.ID, d.ID, 10, 0)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestSendMessagePublishFailureIsNotReturned(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	d, err := env.discussionService().ResolveOrCreateDiscussion(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	env.publisher.err = errors.New("kafka unavailable")
	svc := NewMessageService(env.db, env.messages, env.discussions, env.publisher)
	msg, err := svc.SendMessage(ctx, bob.ID, d.ID, "still saved")
	require.NoError(t, err)

	list, err := svc.ListMessages(ctx, alice.ID, d.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, msg.ID, list[0].ID)
}
