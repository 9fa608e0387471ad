package services

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"muse-go/internal/config"
	"muse-go/internal/logging"
	"muse-go/internal/models"
	"muse-go/internal/musetypes"
	"muse-go/internal/storage"
)

// memoryHistory 是 musetypes.SwipeHistory 的内存实现。
type memoryHistory struct {
	mu      sync.Mutex
	entries map[uint][]uint
	pushErr error
}

func (h *memoryHistory) Push(_ context.Context, userID, swipeID uint) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pushErr != nil {
		return h.pushErr
	}
	if h.entries == nil {
		h.entries = make(map[uint][]uint)
	}
	h.entries[userID] = append(h.entries[userID], swipeID)
	return nil
}

func (h *memoryHistory) Pop(_ context.Context, userID uint) (uint, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.entries[userID]
	if len(list) == 0 {
		return 0, musetypes.ErrHistoryEmpty
	}
	last := list[len(list)-1]
	h.entries[userID] = list[:len(list)-1]
	return last, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []musetypes.ChatEvent
	err    error
}

func (p *recordingPublisher) PublishChatEvent(_ context.Context, ev musetypes.ChatEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Events() []musetypes.ChatEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]musetypes.ChatEvent(nil), p.events...)
}

type testEnv struct {
	db          *gorm.DB
	users       storage.UserRepository
	songs       storage.SongRepository
	swipes      storage.SwipeRepository
	discussions storage.DiscussionRepository
	messages    storage.MessageRepository
	purchases   storage.PurchaseRepository
	history     *memoryHistory
	publisher   *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := storage.InitDB(config.DatabaseConfig{Type: "sqlite", Path: ":memory:"}, logging.New(io.Discard, "error"))
	require.NoError(t, err)
	require.NoError(t, storage.AutoMigrateTables(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return &testEnv{
		db:          db,
		users:       storage.NewGormUserRepository(db),
		songs:       storage.NewGormSongRepository(db),
		swipes:      storage.NewGormSwipeRepository(db),
		discussions: storage.NewGormDiscussionRepository(db),
		messages:    storage.NewGormMessageRepository(db),
		purchases:   storage.NewGormPurchaseRepository(db),
		history:     &memoryHistory{},
		publisher:   &recordingPublisher{},
	}
}

func (e *testEnv) swipeService() *swipeService {
	return NewSwipeService(e.db, e.users, e.songs, e.swipes, e.history).(*swipeService)
}

func (e *testEnv) discussionService() DiscussionService {
	return NewDiscussionService(e.db, e.users, e.songs, e.discussions, e.publisher)
}

func (e *testEnv) createUser(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", PasswordHash: "x"}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func (e *testEnv) createSong(t *testing.T, creatorID uint, title string) *models.Song {
	t.Helper()
	s := &models.Song{Title: title, CreatorID: creatorID, CoverURL: "/uploads/image/" + title + ".png"}
	require.NoError(t, e.songs.CreateWithTx(context.Background(), nil, s))
	return s
}

func (e *testEnv) reloadUser(t *testing.T, id uint) *models.User {
	t.Helper()
	u, err := e.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (e *testEnv) reloadSong(t *testing.T, id uint) *models.Song {
	t.Helper()
	s, err := e.songs.GetByID(context.Background(), id)
	require.NoError(t, err)
	return s
}
