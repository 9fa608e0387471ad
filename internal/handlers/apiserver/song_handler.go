package apiserver

import (
	"net/http"

	"muse-go/internal/middleware"
	"muse-go/internal/services"
)

// SongHandler 处理歌曲发布和查询。
type SongHandler struct {
	songService services.SongService
}

// NewSongHandler 创建一个新的 SongHandler 实例。
func NewSongHandler(songService services.SongService) *SongHandler {
	return &SongHandler{songService: songService}
}

// CreateSong 处理 POST /songs。
func (h *SongHandler) CreateSong(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}
	var input services.SongInput
	if !decodeJSON(w, r, &input) {
		return
	}
	song, err := h.songService.CreateSong(r.Context(), userID, input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, song)
}

// GetSong 处理 GET /songs/{songID}。
func (h *SongHandler) GetSong(w http.ResponseWriter, r *http.Request) {
	songID, ok := pathID(w, r, "songID")
	if !ok {
		return
	}
	song, err := h.songService.GetSong(r.Context(), songID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, song)
}

// ListUserSongs 处理 GET /users/{userID}/songs。
func (h *SongHandler) ListUserSongs(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	songs, err := h.songService.ListByCreator(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, songs)
}
