package webdav

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"filevault/internal/model"
)

// DefaultChunkThreshold 超过该大小的文件使用分块上传
const DefaultChunkThreshold = MaxSimpleUploadSize

// WebDAVConfig WebDAV 客户端配置
type WebDAVConfig struct {
	URL  string
	User string
	Pass string

	// 可选：覆盖由 URL 推导出的 DAV / OCS / 公共链接根地址
	DAVURL    string
	OCSURL    string
	PublicURL string

	ChunkSize      int64
	ChunkThreshold int64
	Concurrency    int

	// HTTPClient 为空时使用 NewHTTPClient
	HTTPClient *http.Client
}

type uploader interface {
	Upload(ctx context.Context, localPath, targetPath string) error
}

// WebDAVClient 文件存储门面：按文件大小选择上传策略，其余操作直接委托
type WebDAVClient struct {
	simple     uploader
	chunked    uploader
	downloader *Downloader
	remover    *Remover
	threshold  int64
	url        string
}

// NewHTTPClient 所有组件共享的 HTTP 客户端，大文件分块需要较长的响应头超时
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: 60 * time.Minute,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: 10 * time.Second,
		},
	}
}

// NewClient 创建 WebDAV 客户端
func NewClient(cfg WebDAVConfig) (*WebDAVClient, error) {
	ep, err := resolveEndpoints(cfg)
	if err != nil {
		return nil, err
	}

	chunkSize := cfg.ChunkSize
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	threshold := cfg.ChunkThreshold
	if threshold == 0 {
		threshold = DefaultChunkThreshold
	}
	if threshold < 0 || threshold > MaxSimpleUploadSize {
		return nil, fmt.Errorf("webdav: chunk threshold %d must be within (0, %d]", threshold, MaxSimpleUploadSize)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = NewHTTPClient()
	}
	rq := &requester{hc: hc, auth: NewBasicAuth(cfg.User, cfg.Pass)}
	dirs := &DirectoryCreator{rq: rq, ep: ep}

	chunked, err := newChunkedUploader(rq, ep, dirs, chunkSize, cfg.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("webdav: %w", err)
	}

	return &WebDAVClient{
		simple:     &SimpleUploader{rq: rq, ep: ep, dirs: dirs},
		chunked:    chunked,
		downloader: newDownloader(rq, ep),
		remover:    &Remover{rq: rq, ep: ep},
		threshold:  threshold,
		url:        cfg.URL,
	}, nil
}

func resolveEndpoints(cfg WebDAVConfig) (endpoints, error) {
	base := strings.TrimRight(cfg.URL, "/")
	ep := endpoints{
		dav:    strings.TrimRight(cfg.DAVURL, "/"),
		ocs:    strings.TrimRight(cfg.OCSURL, "/"),
		public: strings.TrimRight(cfg.PublicURL, "/"),
		user:   cfg.User,
	}
	if ep.dav == "" {
		ep.dav = base + "/remote.php/dav"
	}
	if ep.ocs == "" {
		ep.ocs = base + "/ocs/v2.php/apps/files_sharing/api/v1"
	}
	if ep.public == "" {
		ep.public = base
	}
	if base == "" && (cfg.DAVURL == "" || cfg.OCSURL == "" || cfg.PublicURL == "") {
		return endpoints{}, fmt.Errorf("webdav: URL is required")
	}
	if cfg.User == "" {
		return endpoints{}, fmt.Errorf("webdav: user is required")
	}
	return ep, nil
}

// Upload 大于阈值走分块上传，否则单次上传
func (c *WebDAVClient) Upload(ctx context.Context, localPath, targetPath string) error {
	size, err := model.StatLocalFile(localPath)
	if err != nil {
		return err
	}
	if size > c.threshold {
		return c.chunked.Upload(ctx, localPath, targetPath)
	}
	return c.simple.Upload(ctx, localPath, targetPath)
}

// Remove 删除远端文件
func (c *WebDAVClient) Remove(ctx context.Context, targetPath string) error {
	return c.remover.Remove(ctx, targetPath)
}

// GetDownloadReference 创建公共分享
func (c *WebDAVClient) GetDownloadReference(ctx context.Context, targetPath string, shouldExpire bool) (*model.ShareReference, error) {
	return c.downloader.GetDownloadReference(ctx, targetPath, shouldExpire)
}

// Download 下载到本地临时文件，调用方负责删除
func (c *WebDAVClient) Download(ctx context.Context, targetPath string) (string, error) {
	return c.downloader.Download(ctx, targetPath)
}

// Close 清理资源（WebDAV 客户端不需要显式关闭）
func (c *WebDAVClient) Close() error {
	return nil
}
