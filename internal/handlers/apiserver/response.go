package apiserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"muse-go/internal/services"
	"muse-go/internal/storage"
)

// ErrorResponse 是 API 错误响应的通用结构体。
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSONResponse 是一个辅助函数，用于发送 JSON 响应。
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// 头部已经发送，只能记录
			log.Error("无法编码 JSON 响应", "err", err)
		}
	}
}

// writeJSONError 是一个辅助函数，用于发送 JSON 格式的错误响应。
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONResponse(w, statusCode, ErrorResponse{Error: message})
}

// writeServiceError 把服务层的哨兵错误映射为 HTTP 状态码；未知错误只返回通用信息。
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeJSONError(w, "服务器内部错误，请稍后重试", status)
		return
	}
	writeJSONError(w, err.Error(), status)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrSongNotFound),
		errors.Is(err, services.ErrSwipeNotFound),
		errors.Is(err, services.ErrDiscussionNotFound),
		errors.Is(err, services.ErrPurchaseNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidSwipeAction),
		errors.Is(err, services.ErrSelfDiscussion),
		errors.Is(err, services.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUserAlreadyExists),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrNothingToUndo):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// pathID 读取并解析 mux 路径参数中的 id。
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	raw, ok := mux.Vars(r)[name]
	if !ok {
		writeJSONError(w, "请求路径中缺少 "+name, http.StatusBadRequest)
		return 0, false
	}
	id, err := storage.StrToUint(raw)
	if err != nil || id == 0 {
		writeJSONError(w, "无效的 "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// queryInt 读取可选的整数查询参数，缺失或无效时返回 def。
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, "请求体无效", http.StatusBadRequest)
		return false
	}
	return true
}
