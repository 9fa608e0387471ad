package apiserver

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"muse-go/internal/auth"
	"muse-go/internal/config"
	"muse-go/internal/logging"
	"muse-go/internal/middleware"
	"muse-go/internal/models"
	"muse-go/internal/musetypes"
	"muse-go/internal/services"
	"muse-go/internal/storage"
)

const webhookSecret = "whsec"

type stackHistory struct {
	mu      sync.Mutex
	entries map[uint][]uint
}

func (h *stackHistory) Push(_ context.Context, userID, swipeID uint) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.entries == nil {
		h.entries = make(map[uint][]uint)
	}
	h.entries[userID] = append(h.entries[userID], swipeID)
	return nil
}

func (h *stackHistory) Pop(_ context.Context, userID uint) (uint, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.entries[userID]
	if len(list) == 0 {
		return 0, musetypes.ErrHistoryEmpty
	}
	h.entries[userID] = list[:len(list)-1]
	return list[len(list)-1], nil
}

type fakeStorage struct {
	uploaded []string
}

func (s *fakeStorage) UploadFile(_ context.Context, kind musetypes.AssetKind, r io.Reader, size int64, name, mime string) (*musetypes.FileInfo, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return nil, err
	}
	s.uploaded = append(s.uploaded, name)
	return &musetypes.FileInfo{URL: "/uploads/" + string(kind) + "/x", Kind: kind, Size: size, MimeType: mime, FileName: name}, nil
}

func (s *fakeStorage) DeleteFile(context.Context, string) error { return nil }

type testServer struct {
	handler http.Handler
	authCfg config.AuthConfig
	storage *fakeStorage
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := storage.InitDB(config.DatabaseConfig{Type: "sqlite", Path: ":memory:"}, logging.New(io.Discard, "error"))
	require.NoError(t, err)
	require.NoError(t, storage.AutoMigrateTables(db))

	authCfg := config.AuthConfig{JWTSecretKey: "test-secret", JWTExpiry: time.Hour}
	users := storage.NewGormUserRepository(db)
	songs := storage.NewGormSongRepository(db)
	swipes := storage.NewGormSwipeRepository(db)
	discussions := storage.NewGormDiscussionRepository(db)
	messages := storage.NewGormMessageRepository(db)
	purchases := storage.NewGormPurchaseRepository(db)
	fs := &fakeStorage{}

	h := Handlers{
		Auth:       NewAuthHandler(services.NewAuthService(users, nil, authCfg)),
		User:       NewUserHandler(services.NewUserService(users)),
		Song:       NewSongHandler(services.NewSongService(db, users, songs)),
		Feed:       NewFeedHandler(services.NewFeedService(songs, users, config.FeedConfig{PageSize: 10, MaxPageSize: 20})),
		Swipe:      NewSwipeHandler(services.NewSwipeService(db, users, songs, swipes, &stackHistory{}), services.NewLibraryService(swipes, songs)),
		Discussion: NewDiscussionHandler(services.NewDiscussionService(db, users, songs, discussions, nil), services.NewMessageService(db, messages, discussions, nil)),
		Purchase: NewPurchaseHandler(services.NewPurchaseService(db, users, songs, purchases, config.PaymentsConfig{
			SongPriceCents: 2500, Currency: "USD", WebhookSecret: webhookSecret,
		})),
		Upload: NewUploadHandler(fs, config.StorageConfig{MaxImageSizeMB: 1, MaxAudioSizeMB: 2}),
	}
	return &testServer{handler: NewRouter(h, middleware.AuthMiddleware(authCfg, nil)), authCfg: authCfg, storage: fs}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// signup 注册并登录，返回用户 id 和 token。
func (s *testServer) signup(t *testing.T, name string) (uint, string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{Username: name, Email: name + "@example.com", Password: "secret123"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/auth/login", "", LoginRequest{UsernameOrEmail: name, Password: "secret123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp LoginResponse
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.User.ID, resp.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestAuthAndProfile(t *testing.T) {
	s := newTestServer(t)
	id, token := s.signup(t, "alice")

	rec := s.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{Username: "alice", Email: "other@example.com", Password: "secret123"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/login", "", LoginRequest{UsernameOrEmail: "alice", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/v1/users/me", token, UpdateProfileRequest{ProfilePictureURL: "/uploads/image/a.png"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "passwordHash")

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", id), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info models.UserBasicInfo
	decode(t, rec, &info)
	assert.Equal(t, "alice", info.Username)
	assert.Equal(t, "/uploads/image/a.png", info.ProfilePictureURL)

	rec = s.do(t, http.MethodGet, "/api/v1/users/999", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSwipeFeedAndLibrary(t *testing.T) {
	s := newTestServer(t)
	bobID, bobToken := s.signup(t, "bob")
	_, aliceToken := s.signup(t, "alice")

	rec := s.do(t, http.MethodPost, "/api/v1/songs", bobToken, services.SongInput{Title: "Night Drive", Key: "Am", BPM: 96})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var song models.Song
	decode(t, rec, &song)
	assert.Equal(t, bobID, song.CreatorID)

	rec = s.do(t, http.MethodGet, "/api/v1/feed", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var feed []*models.FeedSong
	decode(t, rec, &feed)
	require.Len(t, feed, 1)
	assert.Equal(t, "bob", feed[0].CreatorUsername)

	rec = s.do(t, http.MethodPost, "/api/v1/swipes", aliceToken, SwipeRequest{SongID: song.ID, Action: "sideways"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/swipes", aliceToken, SwipeRequest{SongID: song.ID, Action: models.SwipeLike})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var swipe models.Swipe
	decode(t, rec, &swipe)
	assert.True(t, swipe.Liked)

	rec = s.do(t, http.MethodGet, "/api/v1/feed", aliceToken, nil)
	decode(t, rec, &feed)
	assert.Empty(t, feed)

	rec = s.do(t, http.MethodGet, "/api/v1/library", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var groups []*services.LibraryGroup
	decode(t, rec, &groups)
	require.Len(t, groups, 1)
	assert.Equal(t, "Today", groups[0].Label)
	require.Len(t, groups[0].Entries, 1)
	assert.Equal(t, "Night Drive", groups[0].Entries[0].Title)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/swipes/%d", swipe.ID), bobToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/swipes/undo", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/v1/swipes/undo", aliceToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/feed", aliceToken, nil)
	decode(t, rec, &feed)
	assert.Len(t, feed, 1)
}

func TestDiscussionOverHTTP(t *testing.T) {
	s := newTestServer(t)
	bobID, bobToken := s.signup(t, "bob")
	aliceID, aliceToken := s.signup(t, "alice")
	_, carolToken := s.signup(t, "carol")

	rec := s.do(t, http.MethodPost, "/api/v1/songs", bobToken, services.SongInput{Title: "Loop"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var song models.Song
	decode(t, rec, &song)

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/songs/%d/discussion", song.ID), aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var d models.Discussion
	decode(t, rec, &d)
	assert.Equal(t, min(aliceID, bobID), d.ParticipantLowID)

	// 同一对用户再次解析得到同一个讨论
	rec = s.do(t, http.MethodPost, "/api/v1/discussions", bobToken, ResolveDiscussionRequest{OtherUserID: aliceID})
	require.Equal(t, http.StatusOK, rec.Code)
	var again models.Discussion
	decode(t, rec, &again)
	assert.Equal(t, d.ID, again.ID)

	rec = s.do(t, http.MethodPost, "/api/v1/discussions", bobToken, ResolveDiscussionRequest{OtherUserID: bobID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	msgPath := fmt.Sprintf("/api/v1/discussions/%d/messages", d.ID)
	rec = s.do(t, http.MethodPost, msgPath, aliceToken, SendMessageRequest{Text: "  love this  "})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, msgPath, aliceToken, SendMessageRequest{Text: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, msgPath, carolToken, SendMessageRequest{Text: "hi"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, msgPath, bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []*models.Message
	decode(t, rec, &msgs)
	require.Len(t, msgs, 1)
	assert.Equal(t, "love this", msgs[0].Text)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/discussions/%d/participant", d.ID), bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var other models.UserBasicInfo
	decode(t, rec, &other)
	assert.Equal(t, "alice", other.Username)

	rec = s.do(t, http.MethodGet, "/api/v1/discussions", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summaries []*models.DiscussionSummary
	decode(t, rec, &summaries)
	require.Len(t, summaries, 1)
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, "love this", summaries[0].LastMessage.Text)
}

func TestPurchaseAndCallback(t *testing.T) {
	s := newTestServer(t)
	_, bobToken := s.signup(t, "bob")
	_, aliceToken := s.signup(t, "alice")

	rec := s.do(t, http.MethodPost, "/api/v1/songs", bobToken, services.SongInput{Title: "Beat"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var song models.Song
	decode(t, rec, &song)
	purchasePath := fmt.Sprintf("/api/v1/songs/%d/purchase", song.ID)

	rec = s.do(t, http.MethodGet, purchasePath, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status PurchaseStatusResponse
	decode(t, rec, &status)
	assert.Equal(t, models.PurchaseIdle, status.Status)

	rec = s.do(t, http.MethodPost, purchasePath, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var p models.Purchase
	decode(t, rec, &p)
	assert.Equal(t, models.PurchasePending, p.Status)

	body, err := json.Marshal(PaymentCallback{ProviderRef: p.ProviderRef, Succeeded: true})
	require.NoError(t, err)
	callback := func(sig string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/payments/callback", bytes.NewReader(body))
		req.Header.Set(SignatureHeader, sig)
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, callback("deadbeef").Code)
	assert.Equal(t, http.StatusUnauthorized, callback(hex.EncodeToString(services.SignPayload("other", body))).Code)

	good := hex.EncodeToString(services.SignPayload(webhookSecret, body))
	rec = callback(good)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	// 重复回调不改变状态
	assert.Equal(t, http.StatusOK, callback(good).Code)

	rec = s.do(t, http.MethodGet, purchasePath, aliceToken, nil)
	decode(t, rec, &status)
	assert.Equal(t, models.PurchasePurchased, status.Status)
}

func TestUploadHandler(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup(t, "alice")

	upload := func(kind, mime string, size int) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="file"; filename="cover.bin"`)
		hdr.Set("Content-Type", mime)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(bytes.Repeat([]byte("x"), size))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/upload?kind="+kind, &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		return rec
	}

	rec := upload("image", "image/png", 128)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var info musetypes.FileInfo
	decode(t, rec, &info)
	assert.Equal(t, musetypes.AssetImage, info.Kind)

	assert.Equal(t, http.StatusBadRequest, upload("video", "video/mp4", 16).Code)
	assert.Equal(t, http.StatusBadRequest, upload("audio", "image/png", 16).Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge, upload("image", "image/png", 3<<20).Code)
	assert.Equal(t, http.StatusOK, upload("audio", "audio/mpeg", 1536<<10).Code)
	assert.Len(t, s.storage.uploaded, 2)
}

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.ErrSongNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", services.ErrDiscussionNotFound), http.StatusNotFound},
		{services.ErrNotParticipant, http.StatusForbidden},
		{services.ErrInvalidSwipeAction, http.StatusBadRequest},
		{services.ErrInvalidTransition, http.StatusConflict},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{auth.ErrTokenRevoked, http.StatusInternalServerError},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusForError(c.err), c.err.Error())
	}
}
