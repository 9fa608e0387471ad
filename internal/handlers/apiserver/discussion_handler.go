package apiserver

import (
	"net/http"

	"muse-go/internal/middleware"
	"muse-go/internal/services"
)

// DiscussionHandler 处理讨论和消息相关请求。
type DiscussionHandler struct {
	discussionService services.DiscussionService
	messageService    services.MessageService
}

// NewDiscussionHandler 创建一个新的 DiscussionHandler 实例。
func NewDiscussionHandler(discussionService services.DiscussionService, messageService services.MessageService) *DiscussionHandler {
	return &DiscussionHandler{discussionService: discussionService, messageService: messageService}
}

// ResolveDiscussionRequest 指定讨论的另一方。
type ResolveDiscussionRequest struct {
	OtherUserID uint `json:"otherUserId"`
}

// SendMessageRequest 是发送消息的请求体。
type SendMessageRequest struct {
	Text string `json:"text"`
}

// ListDiscussions 处理 GET /discussions。
func (h *DiscussionHandler) ListDiscussions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}
	summaries, err := h.discussionService.ListDiscussions(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, summaries)
}

// ResolveDiscussion 处理 POST /discussions：返回与对方唯一的讨论，不存在时创建。
func (h *DiscussionHandler) ResolveDiscussion(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}
	var req ResolveDiscussionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.OtherUserID == 0 {
		writeJSONError(w, "otherUserId 不能为空", http.StatusBadRequest)
		return
	}
	discussion, err := h.discussionService.ResolveOrCreateDiscussion(r.Context(), userID, req.OtherUserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, discussion)
}

// ResolveForSong 处理 POST /songs/{songID}/discussion：与歌曲创建者开始讨论。
func (h *DiscussionHandler) ResolveForSong(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}
	songID, ok := pathID(w, r, "songID")
	if !ok {
		return
	}
	discussion, err := h.discussionService.ResolveForSong(r.Context(), userID, songID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, discussion)
}

// GetParticipant 处理 GET /discussions/{discussionID}/participant。
func (h *DiscussionHandler) GetParticipant(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}
	discussionID, ok := pathID(w, r, "discussionID")
	if !ok {
		return
	}
	info, err := h.discussionService.GetParticipantInfo(r.Context(), userID, discussionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, info)
}

// ListMessages 处理 GET /discussions/{discussionID}/messages?limit=&offset=。
func (h *DiscussionHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}
	discussionID, ok := pathID(w, r, "discussionID")
	if !ok {
		return
	}
	messages, err := h.messageService.ListMessages(r.Context(), userID, discussionID, queryInt(r, "limit", 0), queryInt(r, "offset", 0))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, messages)
}

// SendMessage 处理 POST /discussions/{discussionID}/messages。
func (h *DiscussionHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}
	discussionID, ok := pathID(w, r, "discussionID")
	if !ok {
		return
	}
	var req SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	msg, err := h.messageService.SendMessage(r.Context(), userID, discussionID, req.Text)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, msg)
}
