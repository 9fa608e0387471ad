package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"muse-go/internal/config"
	"muse-go/internal/musetypes"
)

// LocalStorageService 实现了 musetypes.StorageService 接口，文件按类型存放在子目录中。
type LocalStorageService struct {
	basePath string // 本地存储的基础路径，例如 "./uploads"
	baseURL  string // 用于构建文件访问 URL 的基础 URL，例如 "/uploads"
}

// NewLocalStorageService 创建一个新的 LocalStorageService 实例。
func NewLocalStorageService(cfg config.StorageConfig) (musetypes.StorageService, error) {
	for _, kind := range []musetypes.AssetKind{musetypes.AssetImage, musetypes.AssetAudio} {
		dir := filepath.Join(cfg.LocalPath, string(kind))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建本地存储目录失败 '%s': %w", dir, err)
		}
	}
	return &LocalStorageService{
		basePath: cfg.LocalPath,
		baseURL:  cfg.BaseURL,
	}, nil
}

// UploadFile 将文件保存到本地文件系统，文件名为 uuid 加原始扩展名。
func (s *LocalStorageService) UploadFile(ctx context.Context, kind musetypes.AssetKind, reader io.Reader, fileSize int64, fileName string, mimeType string) (*musetypes.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext := filepath.Ext(fileName)
	if ext == "" {
		// 如果没有扩展名，尝试从 MIME 类型推断
		if extensions, _ := mime.ExtensionsByType(mimeType); len(extensions) > 0 {
			ext = extensions[0]
		}
	}
	uniqueFileName := uuid.New().String() + ext
	dstPath := filepath.Join(s.basePath, string(kind), uniqueFileName)

	dst, err := os.Create(dstPath)
	if err != nil {
		return nil, fmt.Errorf("创建目标文件失败 '%s': %w", dstPath, err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, reader)
	if err != nil {
		os.Remove(dstPath)
		return nil, fmt.Errorf("写入文件失败: %w", err)
	}
	if fileSize >= 0 && written != fileSize {
		os.Remove(dstPath)
		return nil, fmt.Errorf("文件大小不匹配: 预期 %d, 实际写入 %d", fileSize, written)
	}

	fileURL := strings.TrimSuffix(s.baseURL, "/") + "/" + string(kind) + "/" + url.PathEscape(uniqueFileName)

	return &musetypes.FileInfo{
		URL:      fileURL,
		Path:     dstPath,
		Kind:     kind,
		Size:     written,
		MimeType: mimeType,
		FileName: fileName,
	}, nil
}

// DeleteFile 删除本地文件；文件必须位于存储根目录之下。
func (s *LocalStorageService) DeleteFile(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel, err := filepath.Rel(s.basePath, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("路径不在存储目录内: %s", path)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("删除文件失败: %w", err)
	}
	return nil
}
