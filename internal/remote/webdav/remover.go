package webdav

import (
	"context"
	"fmt"
	"net/http"
)

// Remover 删除远端对象；对象不存在（404）视为成功
type Remover struct {
	rq *requester
	ep endpoints
}

func (r *Remover) Remove(ctx context.Context, targetPath string) error {
	target, err := cleanPath(targetPath)
	if err != nil {
		return err
	}
	status, err := r.rq.exec(ctx, request{
		method: http.MethodDelete,
		url:    r.ep.file(target),
		accept: []int{http.StatusNotFound},
	})
	if err != nil {
		return fmt.Errorf("remove '%s': %w", target, err)
	}
	if status == http.StatusNotFound {
		logf("Remove '%s': already gone", target)
		return nil
	}
	logf("Removed '%s'", target)
	return nil
}
