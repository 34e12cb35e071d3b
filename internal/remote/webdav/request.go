package webdav

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"filevault/internal/model"
)

// WebDAV / Nextcloud 协议头
const (
	HeaderDestination = "Destination"
	HeaderTotalLength = "OC-Total-Length"
	HeaderOCSRequest  = "OCS-APIRequest"

	MethodMkcol = "MKCOL"
	MethodMove  = "MOVE"

	maxErrorBody = 4 << 10
)

// endpoints 远端各个根地址
type endpoints struct {
	dav    string
	ocs    string
	public string
	user   string
}

// file 用户文件树中的绝对 URL
func (e endpoints) file(p string) string {
	return e.dav + "/files/" + url.PathEscape(e.user) + "/" + escapePath(p)
}

// upload 分块上传会话中的 URL
func (e endpoints) upload(session string, elem ...string) string {
	u := e.dav + "/uploads/" + url.PathEscape(e.user) + "/" + url.PathEscape(session)
	for _, s := range elem {
		u += "/" + url.PathEscape(s)
	}
	return u
}

func (e endpoints) shares() string {
	return e.ocs + "/shares"
}

// splitPath 拆分远端路径，忽略首尾斜杠与空段
func splitPath(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" && s != "." {
			segs = append(segs, s)
		}
	}
	return segs
}

// cleanPath 规范化远端路径；空路径返回 ErrInvalidPath
func cleanPath(p string) (string, error) {
	segs := splitPath(p)
	if len(segs) == 0 {
		return "", fmt.Errorf("%w: %q", model.ErrInvalidPath, p)
	}
	return strings.Join(segs, "/"), nil
}

func escapePath(p string) string {
	segs := splitPath(p)
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// requester 所有组件共享的请求装饰器：附加凭据、执行请求、按状态码白名单判定结果
type requester struct {
	hc   *http.Client
	auth Authenticator
}

type request struct {
	method string
	url    string
	body   io.Reader
	size   int64
	header http.Header
	// accept 除 2xx 外额外视为成功的状态码
	accept []int
}

// do 执行请求；成功时由调用方关闭响应体
func (r *requester) do(ctx context.Context, rq request) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, rq.method, rq.url, rq.body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if rq.body != nil && rq.size >= 0 {
		req.ContentLength = rq.size
	}
	for k, vals := range rq.header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	r.auth.Authorize(req)

	resp, err := r.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", rq.method, rq.url, err)
	}
	if accepted(resp.StatusCode, rq.accept) {
		return resp, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, &model.UnexpectedResponseError{
		Method:     rq.method,
		URL:        rq.url,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}

// exec 执行请求并丢弃响应体
func (r *requester) exec(ctx context.Context, rq request) (int, error) {
	resp, err := r.do(ctx, rq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func accepted(status int, extra []int) bool {
	if status >= 200 && status < 300 {
		return true
	}
	for _, s := range extra {
		if s == status {
			return true
		}
	}
	return false
}
