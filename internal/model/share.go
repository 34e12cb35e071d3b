package model

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
)

// ExpirationLayout 分享接口返回的过期时间格式
const ExpirationLayout = "2006-01-02 15:04:05"

// ShareLink 公共下载链接：{baseUrl}/s/{token}/download/{fileName}
type ShareLink struct {
	BaseURL  string
	Token    string
	FileName string
}

func (l ShareLink) String() string {
	return fmt.Sprintf("%s/s/%s/download/%s",
		strings.TrimRight(l.BaseURL, "/"), url.PathEscape(l.Token), url.PathEscape(l.FileName))
}

// ShareReference 一次分享请求的结果，不做缓存，需要持久化时由调用方保存 Token
type ShareReference struct {
	Token      string
	Path       string
	Expiration string
	URL        string
}

// NewShareReference 根据分享令牌与远端路径生成引用，URL 使用路径的最后一段作为文件名
func NewShareReference(baseURL, token, remotePath, expiration string) *ShareReference {
	link := ShareLink{
		BaseURL:  baseURL,
		Token:    token,
		FileName: path.Base(strings.TrimRight(remotePath, "/")),
	}
	return &ShareReference{
		Token:      token,
		Path:       remotePath,
		Expiration: expiration,
		URL:        link.String(),
	}
}

// ExpiresAt 解析过期时间；永久分享返回 false
func (r *ShareReference) ExpiresAt() (time.Time, bool) {
	if r.Expiration == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{ExpirationLayout, time.DateOnly, time.RFC3339} {
		if t, err := time.ParseInLocation(layout, r.Expiration, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
