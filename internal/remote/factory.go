package remote

import (
	"fmt"
	"strings"

	"filevault/internal/config"
	"filevault/internal/remote/s3"
	"filevault/internal/remote/webdav"
)

// NewFileStorage 根据配置创建远程存储客户端
func NewFileStorage(cfg config.RemoteConfig, upload config.UploadConfig) (FileStorage, error) {
	// 确定存储类型（默认为 Nextcloud / WebDAV）
	storageType := strings.ToLower(strings.TrimSpace(cfg.Type))
	if storageType == "" {
		storageType = "webdav"
	}

	switch storageType {
	case "webdav", "dav", "nextcloud":
		return newWebDAVClient(cfg, upload)
	case "s3", "minio":
		return newS3Client(cfg, upload)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s (supported: webdav, nextcloud, s3, minio)", storageType)
	}
}

// newWebDAVClient 创建 Nextcloud WebDAV 客户端
func newWebDAVClient(cfg config.RemoteConfig, upload config.UploadConfig) (FileStorage, error) {
	if cfg.URL == "" && (cfg.DAVURL == "" || cfg.OCSURL == "" || cfg.PublicURL == "") {
		return nil, fmt.Errorf("webdav: URL is required")
	}

	return webdav.NewClient(webdav.WebDAVConfig{
		URL:            cfg.URL,
		User:           cfg.User,
		Pass:           cfg.Pass,
		DAVURL:         cfg.DAVURL,
		OCSURL:         cfg.OCSURL,
		PublicURL:      cfg.PublicURL,
		ChunkSize:      upload.ChunkSize,
		ChunkThreshold: upload.Threshold,
		Concurrency:    upload.Concurrency,
	})
}

// newS3Client 创建 S3 客户端
func newS3Client(cfg config.RemoteConfig, upload config.UploadConfig) (FileStorage, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3: endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, fmt.Errorf("s3: access_key is required")
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("s3: secret_key is required")
	}

	// 默认区域
	region := cfg.Region
	if region == "" {
		region = config.DefaultRegion
	}

	var partSize uint64
	if upload.ChunkSize > 0 {
		partSize = uint64(upload.ChunkSize)
	}

	return s3.NewClient(s3.S3Config{
		Endpoint:   cfg.Endpoint,
		Region:     region,
		Bucket:     cfg.Bucket,
		AccessKey:  cfg.AccessKey,
		SecretKey:  cfg.SecretKey,
		UseSSL:     cfg.UseSSL,
		PublicBase: cfg.PublicBase,
		PartSize:   partSize,
	})
}
