package apiserver

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Handlers 汇总 API 服务器的所有处理器，由 NewRouter 挂载。
type Handlers struct {
	Auth       *AuthHandler
	User       *UserHandler
	Song       *SongHandler
	Feed       *FeedHandler
	Swipe      *SwipeHandler
	Discussion *DiscussionHandler
	Purchase   *PurchaseHandler
	Upload     *UploadHandler // 可以为 nil，此时不注册上传路由
}

// NewRouter 注册公开路由和 /api/v1 下需要认证的路由。
func NewRouter(h Handlers, authMW mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()

	// 认证路由
	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/register", h.Auth.Register).Methods(http.MethodPost)
	authRouter.HandleFunc("/login", h.Auth.Login).Methods(http.MethodPost)

	// 支付回调由签名保护，不走 JWT
	r.HandleFunc("/payments/callback", h.Purchase.PaymentCallbackHandler).Methods(http.MethodPost)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authMW)

	api.HandleFunc("/auth/logout", h.Auth.Logout).Methods(http.MethodPost)

	// 用户
	api.HandleFunc("/users/me", h.User.GetMyProfile).Methods(http.MethodGet)
	api.HandleFunc("/users/me", h.User.UpdateMyProfile).Methods(http.MethodPut)
	api.HandleFunc("/users/{userID:[0-9]+}", h.User.GetUserProfile).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID:[0-9]+}/songs", h.Song.ListUserSongs).Methods(http.MethodGet)

	// 歌曲
	api.HandleFunc("/songs", h.Song.CreateSong).Methods(http.MethodPost)
	api.HandleFunc("/songs/{songID:[0-9]+}", h.Song.GetSong).Methods(http.MethodGet)
	api.HandleFunc("/songs/{songID:[0-9]+}/discussion", h.Discussion.ResolveForSong).Methods(http.MethodPost)
	api.HandleFunc("/songs/{songID:[0-9]+}/purchase", h.Purchase.StartPurchase).Methods(http.MethodPost)
	api.HandleFunc("/songs/{songID:[0-9]+}/purchase", h.Purchase.GetPurchaseStatus).Methods(http.MethodGet)

	// 滑动与曲库
	api.HandleFunc("/feed", h.Feed.GetFeed).Methods(http.MethodGet)
	api.HandleFunc("/swipes", h.Swipe.RecordSwipe).Methods(http.MethodPost)
	api.HandleFunc("/swipes/undo", h.Swipe.UndoSwipe).Methods(http.MethodPost)
	api.HandleFunc("/swipes/{swipeID:[0-9]+}", h.Swipe.GetSwipe).Methods(http.MethodGet)
	api.HandleFunc("/swipes/{swipeID:[0-9]+}", h.Swipe.RemoveFromLibrary).Methods(http.MethodDelete)
	api.HandleFunc("/library", h.Swipe.GetLibrary).Methods(http.MethodGet)

	// 讨论
	api.HandleFunc("/discussions", h.Discussion.ListDiscussions).Methods(http.MethodGet)
	api.HandleFunc("/discussions", h.Discussion.ResolveDiscussion).Methods(http.MethodPost)
	api.HandleFunc("/discussions/{discussionID:[0-9]+}/participant", h.Discussion.GetParticipant).Methods(http.MethodGet)
	api.HandleFunc("/discussions/{discussionID:[0-9]+}/messages", h.Discussion.ListMessages).Methods(http.MethodGet)
	api.HandleFunc("/discussions/{discussionID:[0-9]+}/messages", h.Discussion.SendMessage).Methods(http.MethodPost)

	if h.Upload != nil {
		api.HandleFunc("/upload", h.Upload.UploadFileHandler).Methods(http.MethodPost)
	}
	return r
}
