package webdav

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/bytedance/sonic"

	"filevault/internal/model"
)

const (
	// ShareTypePublicLink OCS 分享类型：公共链接
	ShareTypePublicLink = 3
	// PermissionRead OCS 分享权限：只读
	PermissionRead = 1
	// ShareExpiryDays 限时分享的有效天数
	ShareExpiryDays = 2
)

type shareRequest struct {
	Path        string `json:"path"`
	ShareType   int    `json:"shareType"`
	Permissions int    `json:"permissions"`
	ExpireDate  string `json:"expireDate,omitempty"`
}

// shareResponse OCS XML 响应；指针字段用于区分“缺失”与“为空”
type shareResponse struct {
	XMLName    xml.Name `xml:"ocs"`
	Token      *string  `xml:"data>token"`
	Path       *string  `xml:"data>path"`
	Expiration *string  `xml:"data>expiration"`
}

// Downloader 创建公共分享并下载远端文件
type Downloader struct {
	rq  *requester
	ep  endpoints
	now func() time.Time
}

func newDownloader(rq *requester, ep endpoints) *Downloader {
	return &Downloader{
		rq:  rq,
		ep:  ep,
		now: time.Now,
	}
}

// GetDownloadReference 为远端文件创建只读公共分享；shouldExpire 时有效期为今天起 2 天
func (d *Downloader) GetDownloadReference(ctx context.Context, targetPath string, shouldExpire bool) (*model.ShareReference, error) {
	target, err := cleanPath(targetPath)
	if err != nil {
		return nil, err
	}

	payload := shareRequest{
		Path:        "/" + target,
		ShareType:   ShareTypePublicLink,
		Permissions: PermissionRead,
	}
	if shouldExpire {
		payload.ExpireDate = d.now().AddDate(0, 0, ShareExpiryDays).Format(time.DateOnly)
	}
	body, err := sonic.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode share request: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set(HeaderOCSRequest, "true")

	resp, err := d.rq.do(ctx, request{
		method: http.MethodPost,
		url:    d.ep.shares(),
		body:   bytes.NewReader(body),
		size:   int64(len(body)),
		header: header,
	})
	if err != nil {
		return nil, fmt.Errorf("share '%s': %w", target, err)
	}
	defer resp.Body.Close()

	ref, err := parseShareResponse(d.ep.public, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("share '%s': %w", target, err)
	}
	logf("Shared '%s' (token: %s, expiration: %q)", target, ref.Token, ref.Expiration)
	return ref, nil
}

func parseShareResponse(publicURL string, r io.Reader) (*model.ShareReference, error) {
	var doc shareResponse
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &model.MalformedResponseError{Field: "body", Err: err}
	}
	switch {
	case doc.Token == nil || *doc.Token == "":
		return nil, &model.MalformedResponseError{Field: "token"}
	case doc.Path == nil || *doc.Path == "":
		return nil, &model.MalformedResponseError{Field: "path"}
	case doc.Expiration == nil:
		return nil, &model.MalformedResponseError{Field: "expiration"}
	}
	return model.NewShareReference(publicURL, *doc.Token, *doc.Path, *doc.Expiration), nil
}

// Download 将远端文件流式写入新建的本地临时文件并返回其路径，失败时删除临时文件
func (d *Downloader) Download(ctx context.Context, targetPath string) (string, error) {
	target, err := cleanPath(targetPath)
	if err != nil {
		return "", err
	}

	resp, err := d.rq.do(ctx, request{
		method: http.MethodGet,
		url:    d.ep.file(target),
	})
	if err != nil {
		return "", fmt.Errorf("download '%s': %w", target, err)
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp("", "filevault-*-"+path.Base(target))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("download '%s': %w", target, err)
	}

	logf("Downloaded '%s' to '%s' (size: %d)", target, tmp.Name(), n)
	return tmp.Name(), nil
}
