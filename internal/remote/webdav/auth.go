package webdav

import (
	"encoding/base64"
	"net/http"
)

// Authenticator 为每个请求附加凭据，并提供用于拼接远端路径的用户名
type Authenticator interface {
	Authorize(req *http.Request)
	Identity() string
}

// BasicAuth 基于用户名/密码的 Basic 认证，创建后只读
type BasicAuth struct {
	user   string
	header string
}

// NewBasicAuth 创建 Basic 认证；空密码不在本地校验，由服务端拒绝
func NewBasicAuth(user, secret string) *BasicAuth {
	token := base64.StdEncoding.EncodeToString([]byte(user + ":" + secret))
	return &BasicAuth{
		user:   user,
		header: "Basic " + token,
	}
}

func (a *BasicAuth) Authorize(req *http.Request) {
	req.Header.Set("Authorization", a.header)
}

func (a *BasicAuth) Identity() string {
	return a.user
}
