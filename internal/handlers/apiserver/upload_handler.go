package apiserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"muse-go/internal/config"
	"muse-go/internal/musetypes"
)

const (
	defaultMaxMemory = 32 << 20 // 32 MB default max memory for multipart forms
	defaultImageMB   = 5
	defaultAudioMB   = 20
)

// UploadHandler 封装了文件上传相关的 HTTP 处理器方法。
type UploadHandler struct {
	storageService musetypes.StorageService
	cfg            config.StorageConfig
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(storageService musetypes.StorageService, cfg config.StorageConfig) *UploadHandler {
	return &UploadHandler{
		storageService: storageService,
		cfg:            cfg,
	}
}

func (h *UploadHandler) limitFor(kind musetypes.AssetKind) int64 {
	switch kind {
	case musetypes.AssetAudio:
		if h.cfg.MaxAudioSizeMB > 0 {
			return h.cfg.MaxAudioSizeMB << 20
		}
		return defaultAudioMB << 20
	default:
		if h.cfg.MaxImageSizeMB > 0 {
			return h.cfg.MaxImageSizeMB << 20
		}
		return defaultImageMB << 20
	}
}

// UploadFileHandler 处理 POST /upload?kind=image|audio，表单字段为 "file"。
func (h *UploadHandler) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	kind := musetypes.AssetKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = musetypes.AssetImage
	}
	if kind != musetypes.AssetImage && kind != musetypes.AssetAudio {
		writeJSONError(w, "kind 只能是 image 或 audio", http.StatusBadRequest)
		return
	}

	// 1. 限制请求体大小，预留表单其余部分的空间
	maxUploadSize := h.limitFor(kind)
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+(1<<20))

	// 2. 解析 multipart form
	if err := r.ParseMultipartForm(defaultMaxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeJSONError(w, fmt.Sprintf("上传文件过大，最大允许 %d MB", maxUploadSize>>20), http.StatusRequestEntityTooLarge)
		} else {
			writeJSONError(w, fmt.Sprintf("解析表单失败: %v", err), http.StatusBadRequest)
		}
		return
	}

	// 3. 获取文件
	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			writeJSONError(w, "请求中缺少 'file' 字段", http.StatusBadRequest)
		} else {
			writeJSONError(w, fmt.Sprintf("获取文件失败: %v", err), http.StatusBadRequest)
		}
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if mimeType != "" && !strings.HasPrefix(mimeType, string(kind)+"/") {
		writeJSONError(w, fmt.Sprintf("文件类型 %s 与 kind=%s 不符", mimeType, kind), http.StatusBadRequest)
		return
	}
	log.Debug("收到上传文件", "name", header.Filename, "size", header.Size, "mime", mimeType, "kind", kind)

	// 4. 再次检查文件大小，MaxBytesReader 针对的是整个请求体
	if header.Size > maxUploadSize {
		writeJSONError(w, fmt.Sprintf("上传文件过大，最大允许 %d MB", maxUploadSize>>20), http.StatusRequestEntityTooLarge)
		return
	}

	fileInfo, err := h.storageService.UploadFile(r.Context(), kind, file, header.Size, header.Filename, mimeType)
	if err != nil {
		log.Error("存储文件失败", "err", err)
		writeJSONError(w, "存储文件失败", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, fileInfo)
}
