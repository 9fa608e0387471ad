package apiserver

import (
	"net/http"
	"time"

	"muse-go/internal/middleware"
	"muse-go/internal/models"
	"muse-go/internal/services"
)

// SwipeHandler 处理滑动、撤销以及曲库。
type SwipeHandler struct {
	swipeService   services.SwipeService
	libraryService services.LibraryService
	now            func() time.Time
}

// NewSwipeHandler 创建一个新的 SwipeHandler 实例。
func NewSwipeHandler(swipeService services.SwipeService, libraryService services.LibraryService) *SwipeHandler {
	return &SwipeHandler{swipeService: swipeService, libraryService: libraryService, now: time.Now}
}

// SwipeRequest 是一次滑动的请求体。
type SwipeRequest struct {
	SongID uint               `json:"songId"`
	Action models.SwipeAction `json:"action"`
}

// RecordSwipe 处理 POST /swipes。
func (h *SwipeHandler) RecordSwipe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}
	var req SwipeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SongID == 0 {
		writeJSONError(w, "songId 不能为空", http.StatusBadRequest)
		return
	}
	swipe, err := h.swipeService.RecordSwipe(r.Context(), userID, req.SongID, req.Action)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, swipe)
}

// UndoSwipe 处理 POST /swipes/undo。被撤销的记录已不存在时返回 204。
func (h *SwipeHandler) UndoSwipe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}
	swipe, err := h.swipeService.UndoLastSwipe(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if swipe == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSONResponse(w, http.StatusOK, swipe)
}

// GetSwipe 处理 GET /swipes/{swipeID}，返回记录及其歌曲。
func (h *SwipeHandler) GetSwipe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}
	swipeID, ok := pathID(w, r, "swipeID")
	if !ok {
		return
	}
	swiped, err := h.swipeService.GetSwipedSong(r.Context(), userID, swipeID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, swiped)
}

// RemoveFromLibrary 处理 DELETE /swipes/{swipeID}。
func (h *SwipeHandler) RemoveFromLibrary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}
	swipeID, ok := pathID(w, r, "swipeID")
	if !ok {
		return
	}
	if err := h.swipeService.RemoveFromLibrary(r.Context(), userID, swipeID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetLibrary 处理 GET /library。
func (h *SwipeHandler) GetLibrary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}
	groups, err := h.libraryService.GetLibrary(r.Context(), userID, h.now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, groups)
}
