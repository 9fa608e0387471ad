package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"muse-go/internal/auth"
	"muse-go/internal/config"
)

type memoryBlacklist struct{ ids map[string]time.Time }

func (m *memoryBlacklist) Add(_ context.Context, jti string, exp time.Time) error {
	m.ids[jti] = exp
	return nil
}

func (m *memoryBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := m.ids[jti]
	return ok, nil
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	bl := &memoryBlacklist{ids: map[string]time.Time{}}
	cfg := config.AuthConfig{JWTSecretKey: "secret", JWTExpiry: time.Hour}
	svc := NewAuthService(env.users, bl, cfg)

	u, err := svc.Register(ctx, " alice ", "alice@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.NotEqual(t, "password1", u.PasswordHash)

	_, err = svc.Register(ctx, "alice", "other@example.com", "password1")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
	_, err = svc.Register(ctx, "alice2", "alice@example.com", "password1")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
	_, err = svc.Register(ctx, "bob", "", "123")
	assert.ErrorIs(t, err, ErrInvalidInput)

	token, logged, err := svc.Login(ctx, "alice@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)

	_, _, err = svc.Login(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	claims, err := auth.ValidateToken(ctx, token, cfg.JWTSecretKey, bl)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, claims))
	_, err = auth.ValidateToken(ctx, token, cfg.JWTSecretKey, bl)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := NewUserService(env.users)
	alice := env.createUser(t, "alice")
	env.createUser(t, "bob")

	updated, err := svc.UpdateProfile(ctx, alice.ID, "alice_beats", "/uploads/image/me.png")
	require.NoError(t, err)
	assert.Equal(t, "alice_beats", updated.Username)
	assert.Empty(t, updated.PasswordHash)

	_, err = svc.UpdateProfile(ctx, alice.ID, "bob", "")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	profile, err := svc.GetProfile(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice_beats", profile.Username)
	assert.Equal(t, "/uploads/image/me.png", profile.ProfilePictureURL)

	_, err = svc.GetProfile(ctx, 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreateSongAppendsToCreator(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := NewSongService(env.db, env.users, env.songs)
	alice := env.createUser(t, "alice")

	song, err := svc.CreateSong(ctx, alice.ID, SongInput{Title: "  Night Drive ", Key: "Am", BPM: 92})
	require.NoError(t, err)
	assert.Equal(t, "Night Drive", song.Title)
	assert.Equal(t, []uint{song.ID}, []uint(env.reloadUser(t, alice.ID).SongIDs))

	_, err = svc.CreateSong(ctx, alice.ID, SongInput{Title: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateSong(ctx, 9999, SongInput{Title: "ghost"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	list, err := svc.ListByCreator(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.GetSong(ctx, 9999)
	assert.ErrorIs(t, err, ErrSongNotFound)
}
