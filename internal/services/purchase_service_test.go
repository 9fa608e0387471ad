package services

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"muse-go/internal/config"
	"muse-go/internal/models"
)

func newPurchaseService(env *testEnv) PurchaseService {
	return NewPurchaseService(env.db, env.users, env.songs, env.purchases, config.PaymentsConfig{
		SongPriceCents: 2500,
		Currency:       "USD",
		WebhookSecret:  "whsec",
	})
}

func TestPurchaseLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newPurchaseService(env)
	alice := env.createUser(t, "alice")
	song := env.createSong(t, alice.ID, "hook")

	status, p, err := svc.GetStatus(ctx, alice.ID, song.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseIdle, status)
	assert.Nil(t, p)

	pending, err := svc.StartPurchase(ctx, alice.ID, song.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchasePending, pending.Status)
	assert.Equal(t, int64(2500), pending.AmountCents)
	assert.NotEmpty(t, pending.ProviderRef)

	// 已经 pending 时不会创建第二条记录
	again, err := svc.StartPurchase(ctx, alice.ID, song.ID)
	require.NoError(t, err)
	assert.Equal(t, pending.ID, again.ID)

	failed, err := svc.ConfirmPayment(ctx, pending.ProviderRef, false, "card declined")
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseFailed, failed.Status)
	assert.Equal(t, "card declined", failed.FailureReason)

	// 重复的失败回调是 no-op
	_, err = svc.ConfirmPayment(ctx, pending.ProviderRef, false, "card declined")
	require.NoError(t, err)
	// failed 不能直接变成 purchased
	_, err = svc.ConfirmPayment(ctx, pending.ProviderRef, true, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	retry, err := svc.StartPurchase(ctx, alice.ID, song.ID)
	require.NoError(t, err)
	assert.NotEqual(t, pending.ProviderRef, retry.ProviderRef)

	done, err := svc.ConfirmPayment(ctx, retry.ProviderRef, true, "")
	require.NoError(t, err)
	assert.Equal(t, models.PurchasePurchased, done.Status)
	assert.NotNil(t, done.ConfirmedAt)

	status, _, err = svc.GetStatus(ctx, alice.ID, song.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchasePurchased, status)

	_, err = svc.ConfirmPayment(ctx, retry.ProviderRef, false, "chargeback")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	bought, err := svc.StartPurchase(ctx, alice.ID, song.ID)
	require.NoError(t, err)
	assert.Equal(t, retry.ID, bought.ID)
}

func TestPurchaseErrors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newPurchaseService(env)
	alice := env.createUser(t, "alice")

	_, err := svc.StartPurchase(ctx, alice.ID, 9999)
	assert.ErrorIs(t, err, ErrSongNotFound)
	_, err = svc.ConfirmPayment(ctx, "no-such-ref", true, "")
	assert.ErrorIs(t, err, ErrPurchaseNotFound)
}

func TestVerifySignature(t *testing.T) {
	env := newTestEnv(t)
	svc := newPurchaseService(env)
	body := []byte(`{"providerRef":"abc","succeeded":true}`)

	sig := hex.EncodeToString(SignPayload("whsec", body))
	assert.True(t, svc.VerifySignature(body, sig))
	assert.False(t, svc.VerifySignature(body, hex.EncodeToString(SignPayload("other", body))))
	assert.False(t, svc.VerifySignature(append(body, ' '), sig))
	assert.False(t, svc.VerifySignature(body, "not-hex"))
	assert.False(t, svc.VerifySignature(body, ""))
}
