package remote

import (
	"context"

	"filevault/internal/model"
)

// FileStorage 远端文件存储抽象接口
// 支持多种存储后端：Nextcloud / WebDAV、S3、MinIO 等
type FileStorage interface {
	// Upload 上传本地文件到远端路径，必要时创建父目录
	Upload(ctx context.Context, localPath, targetPath string) error

	// Remove 删除远端文件；文件不存在视为成功
	Remove(ctx context.Context, targetPath string) error

	// GetDownloadReference 创建只读公共分享
	// shouldExpire: 为 true 时分享在 2 天后失效
	GetDownloadReference(ctx context.Context, targetPath string, shouldExpire bool) (*model.ShareReference, error)

	// Download 下载到本地临时文件并返回路径（需要调用者删除）
	Download(ctx context.Context, targetPath string) (string, error)

	// Close 清理资源（如连接池等）
	// 注意：某些实现可能不需要显式关闭
	Close() error
}
