// internal/musetypes/storage_service.go
package musetypes

import (
	"context"
	"io"
)

// StorageService 是一个不透明的 key -> URL 二进制存储。
// 将接口定义放在 musetypes 中以打破 storage 和 services 之间的循环依赖。
type StorageService interface {
	// UploadFile 将 reader 中的内容保存下来并返回可访问的 URL。
	UploadFile(ctx context.Context, kind AssetKind, reader io.Reader, fileSize int64, fileName string, mimeType string) (*FileInfo, error)
	// DeleteFile 删除 UploadFile 返回的 Path 对应的文件。
	DeleteFile(ctx context.Context, path string) error
}
