package webdav

import (
	"context"
	"fmt"
	"os"

	"filevault/internal/model"
)

// MaxSimpleUploadSize 单次 PUT 上传的大小上限
const MaxSimpleUploadSize int64 = 10_000_000

// SimpleUploader 单请求上传小文件
type SimpleUploader struct {
	rq   *requester
	ep   endpoints
	dirs *DirectoryCreator
}

// Upload 校验本地文件后创建上级目录，再以一个 PUT 上传全部内容
func (u *SimpleUploader) Upload(ctx context.Context, localPath, targetPath string) error {
	size, err := model.StatLocalFile(localPath)
	if err != nil {
		return err
	}
	if err := model.CheckMaxSize(localPath, size, MaxSimpleUploadSize); err != nil {
		return err
	}
	target, err := cleanPath(targetPath)
	if err != nil {
		return err
	}

	if err := u.dirs.EnsureDirectories(ctx, target); err != nil {
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return &model.InvalidFileError{Path: localPath, Reason: err.Error()}
	}
	defer f.Close()

	logf("Uploading '%s' (size: %d)", target, size)
	if _, err := u.rq.exec(ctx, request{
		method: "PUT",
		url:    u.ep.file(target),
		body:   f,
		size:   size,
	}); err != nil {
		return fmt.Errorf("upload '%s': %w", target, err)
	}
	return nil
}
