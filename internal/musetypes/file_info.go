// internal/musetypes/file_info.go
package musetypes

// AssetKind 区分上传的资源类型，不同类型有不同的大小上限。
type AssetKind string

const (
	AssetImage AssetKind = "image" // 封面、头像
	AssetAudio AssetKind = "audio" // 歌曲音频
)

// FileInfo 包含上传文件的基本信息和访问路径。
type FileInfo struct {
	URL      string    `json:"url"`  // 可公开访问的文件 URL
	Path     string    `json:"path"` // 文件在存储系统中的路径或标识符
	Kind     AssetKind `json:"kind"`
	Size     int64     `json:"size"`
	MimeType string    `json:"mimeType"`
	FileName string    `json:"fileName"` // 原始文件名
}
