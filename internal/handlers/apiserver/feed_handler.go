package apiserver

import (
	"net/http"

	"muse-go/internal/middleware"
	"muse-go/internal/services"
)

// FeedHandler 返回滑动页的候选歌曲。
type FeedHandler struct {
	feedService services.FeedService
}

func NewFeedHandler(feedService services.FeedService) *FeedHandler {
	return &FeedHandler{feedService: feedService}
}

// GetFeed 处理 GET /feed?limit=N。
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}
	songs, err := h.feedService.GetFeed(r.Context(), userID, queryInt(r, "limit", 0))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, songs)
}
