package webdav

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// DirectoryCreator 确保目标文件的所有上级目录存在
type DirectoryCreator struct {
	rq *requester
	ep endpoints
}

// EnsureDirectories 对 a/b/c/file.ext 依次创建 a、a/b、a/b/c；已存在（405）视为成功
func (d *DirectoryCreator) EnsureDirectories(ctx context.Context, targetFilePath string) error {
	segs := splitPath(targetFilePath)
	for i := 1; i < len(segs); i++ {
		dir := strings.Join(segs[:i], "/")
		status, err := d.rq.exec(ctx, request{
			method: MethodMkcol,
			url:    d.ep.file(dir),
			accept: []int{http.StatusMethodNotAllowed},
		})
		if err != nil {
			return fmt.Errorf("create directory '%s': %w", dir, err)
		}
		if status == http.StatusMethodNotAllowed {
			continue
		}
		logf("Created directory '%s'", dir)
	}
	return nil
}
