package s3

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"filevault/internal/model"
)

const (
	// ShareExpiry 限时分享的预签名有效期
	ShareExpiry = 2 * 24 * time.Hour
	// PermanentExpiry 未配置公共地址时"永久"分享退化为最长预签名有效期
	PermanentExpiry = 7 * 24 * time.Hour
)

// S3Config S3 客户端配置
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// PublicBase 浏览器可直接访问的桶地址，例如 http://localhost:9000/files
	PublicBase string
	// PartSize 分片上传的分片大小，0 使用 minio 默认值
	PartSize uint64
	// Transport 为空时使用 minio 默认传输
	Transport http.RoundTripper
}

// S3Client S3 远端客户端实现
type S3Client struct {
	client     *minio.Client
	bucket     string
	publicBase string
	partSize   uint64
	now        func() time.Time
}

// NewClient 创建 S3 客户端；不发起网络请求
func NewClient(cfg S3Config) (*S3Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Region:    cfg.Region,
		Secure:    cfg.UseSSL,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return &S3Client{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: strings.TrimRight(cfg.PublicBase, "/"),
		partSize:   cfg.PartSize,
		now:        time.Now,
	}, nil
}

// CheckBucket 验证 bucket 是否存在
func (c *S3Client) CheckBucket(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", c.mapError(http.MethodHead, "", err))
	}
	if !exists {
		return fmt.Errorf("bucket '%s' does not exist", c.bucket)
	}
	return nil
}

// Upload 上传本地文件；minio-go 按 PartSize 自动切换为 Multipart Upload
func (c *S3Client) Upload(ctx context.Context, localPath, targetPath string) error {
	size, err := model.StatLocalFile(localPath)
	if err != nil {
		return err
	}
	objectName, err := normalizePath(targetPath)
	if err != nil {
		return err
	}

	log.Printf("S3: Uploading '%s' to bucket '%s' (size: %d)", objectName, c.bucket, size)

	opts := minio.PutObjectOptions{
		ContentType: "application/octet-stream",
		PartSize:    c.partSize,
	}
	if _, err := c.client.FPutObject(ctx, c.bucket, objectName, localPath, opts); err != nil {
		return fmt.Errorf("failed to upload object '%s': %w", objectName, c.mapError(http.MethodPut, objectName, err))
	}
	return nil
}

// Remove 删除对象；对象不存在视为成功
func (c *S3Client) Remove(ctx context.Context, targetPath string) error {
	objectName, err := normalizePath(targetPath)
	if err != nil {
		return err
	}

	log.Printf("S3: Deleting '%s' from bucket '%s'", objectName, c.bucket)

	err = c.client.RemoveObject(ctx, c.bucket, objectName, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return fmt.Errorf("failed to delete object '%s': %w", objectName, c.mapError(http.MethodDelete, objectName, err))
	}
	return nil
}

// GetDownloadReference 限时分享返回 2 天有效的预签名地址；
// 永久分享在配置了 PublicBase 时返回公共地址，否则返回最长有效期的预签名地址
func (c *S3Client) GetDownloadReference(ctx context.Context, targetPath string, shouldExpire bool) (*model.ShareReference, error) {
	objectName, err := normalizePath(targetPath)
	if err != nil {
		return nil, err
	}

	if _, err := c.client.StatObject(ctx, c.bucket, objectName, minio.StatObjectOptions{}); err != nil {
		return nil, fmt.Errorf("failed to stat object '%s': %w", objectName, c.mapError(http.MethodHead, objectName, err))
	}

	ref := &model.ShareReference{
		Token: objectName,
		Path:  "/" + objectName,
	}
	if !shouldExpire && c.publicBase != "" {
		ref.URL = c.publicBase + "/" + escapeKey(objectName)
		log.Printf("S3: Shared '%s' via public base", objectName)
		return ref, nil
	}

	expiry := PermanentExpiry
	if shouldExpire {
		expiry = ShareExpiry
	}
	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", path.Base(objectName)))
	u, err := c.client.PresignedGetObject(ctx, c.bucket, objectName, expiry, params)
	if err != nil {
		return nil, fmt.Errorf("failed to presign object '%s': %w", objectName, err)
	}
	ref.URL = u.String()
	ref.Expiration = c.now().Add(expiry).Format(model.ExpirationLayout)

	log.Printf("S3: Shared '%s' (expires: %s)", objectName, ref.Expiration)
	return ref, nil
}

// Download 下载到新建的本地临时文件并返回路径，失败时删除临时文件
func (c *S3Client) Download(ctx context.Context, targetPath string) (string, error) {
	objectName, err := normalizePath(targetPath)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp("", "filevault-*-"+path.Base(objectName))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmp.Close()

	log.Printf("S3: Downloading '%s' from bucket '%s'", objectName, c.bucket)

	if err := c.client.FGetObject(ctx, c.bucket, objectName, tmp.Name(), minio.GetObjectOptions{}); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to get object '%s': %w", objectName, c.mapError(http.MethodGet, objectName, err))
	}
	return tmp.Name(), nil
}

// Close 清理资源（S3 客户端不需要显式关闭）
func (c *S3Client) Close() error {
	return nil
}

// mapError 将 S3 错误响应转换为 UnexpectedResponseError
func (c *S3Client) mapError(method, objectName string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode == 0 {
		return err
	}
	return &model.UnexpectedResponseError{
		Method:     method,
		URL:        c.client.EndpointURL().String() + "/" + c.bucket + "/" + objectName,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(resp.Code + " " + resp.Message),
	}
}

// normalizePath 规范化 S3 对象键
// - 移除 leading slash
// - 转换为正斜杠
func normalizePath(p string) (string, error) {
	cleaned := strings.Trim(filepath.ToSlash(p), "/")
	if cleaned == "" {
		return "", fmt.Errorf("%w: %q", model.ErrInvalidPath, p)
	}
	return cleaned, nil
}

func escapeKey(key string) string {
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
