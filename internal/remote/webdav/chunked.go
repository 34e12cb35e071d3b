package webdav

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"filevault/internal/model"
)

const (
	// MinChunkSize / MaxChunkSize 服务端接受的分块大小区间（最后一块除外）
	MinChunkSize int64 = 5 << 20
	MaxChunkSize int64 = 5 << 30
	// DefaultChunkSize 默认分块大小
	DefaultChunkSize int64 = 10_000_000
	// MaxChunks 单次会话最多分块数
	MaxChunks = 10000

	assemblyMarker = ".file"
)

// ChunkedUploader 大文件分块上传：建会话 -> 按序上传分块 -> 合并
type ChunkedUploader struct {
	rq          *requester
	ep          endpoints
	dirs        *DirectoryCreator
	chunkSize   int64
	concurrency int
	newSession  func() string
}

// CheckChunkSize 校验分块大小是否在允许区间
func CheckChunkSize(size int64) error {
	if size < MinChunkSize {
		return fmt.Errorf("chunk size %d is less than %d", size, MinChunkSize)
	}
	if size > MaxChunkSize {
		return fmt.Errorf("chunk size %d is greater than %d", size, MaxChunkSize)
	}
	return nil
}

func newChunkedUploader(rq *requester, ep endpoints, dirs *DirectoryCreator, chunkSize int64, concurrency int) (*ChunkedUploader, error) {
	if err := CheckChunkSize(chunkSize); err != nil {
		return nil, err
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &ChunkedUploader{
		rq:          rq,
		ep:          ep,
		dirs:        dirs,
		chunkSize:   chunkSize,
		concurrency: concurrency,
		newSession:  uuid.NewString,
	}, nil
}

// MaxFileSize 当前分块大小下允许的最大文件
func (u *ChunkedUploader) MaxFileSize() int64 {
	return u.chunkSize * MaxChunks
}

// Upload 执行完整的分块上传流程；任何一步失败立即返回，不重试、不清理会话
func (u *ChunkedUploader) Upload(ctx context.Context, localPath, targetPath string) error {
	size, err := model.StatLocalFile(localPath)
	if err != nil {
		return err
	}
	if err := model.CheckMaxSize(localPath, size, u.MaxFileSize()); err != nil {
		return err
	}
	target, err := cleanPath(targetPath)
	if err != nil {
		return err
	}

	if err := u.dirs.EnsureDirectories(ctx, target); err != nil {
		return err
	}

	session := u.newSession()
	header := http.Header{}
	header.Set(HeaderDestination, u.ep.file(target))

	if _, err := u.rq.exec(ctx, request{
		method: MethodMkcol,
		url:    u.ep.upload(session),
		header: header,
	}); err != nil {
		return fmt.Errorf("open upload session for '%s': %w", target, err)
	}

	total := (size + u.chunkSize - 1) / u.chunkSize
	logf("Uploading '%s' in %d chunks (size: %d, session: %s)", target, total, size, session)

	header.Set(HeaderTotalLength, strconv.FormatInt(size, 10))
	if err := u.uploadChunks(ctx, localPath, session, header); err != nil {
		return fmt.Errorf("upload '%s': %w", target, err)
	}

	if _, err := u.rq.exec(ctx, request{
		method: MethodMove,
		url:    u.ep.upload(session, assemblyMarker),
		header: header,
	}); err != nil {
		return fmt.Errorf("assemble '%s': %w", target, err)
	}
	logf("Assembled '%s' (size: %d)", target, size)
	return nil
}

// uploadChunks 最多 concurrency 个分块同时在途；为 1 时严格串行。
// 第一个失败会取消其余分块，不再提交新的分块。
func (u *ChunkedUploader) uploadChunks(ctx context.Context, localPath, session string, header http.Header) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)

	for chunk, err := range splitFile(localPath, u.chunkSize) {
		if err != nil {
			g.Go(func() error {
				return &model.InvalidFileError{Path: localPath, Reason: err.Error()}
			})
			break
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			_, err := u.rq.exec(gctx, request{
				method: "PUT",
				url:    u.ep.upload(session, chunk.Name()),
				body:   bytes.NewReader(chunk.Data),
				size:   int64(len(chunk.Data)),
				header: header.Clone(),
			})
			if err != nil {
				return fmt.Errorf("chunk %s: %w", chunk.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
