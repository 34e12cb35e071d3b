package model

import (
	"errors"
	"fmt"
)

// 错误分类：本地输入无效 / 远端返回非预期状态 / 远端响应无法解析
var (
	ErrInvalidFile        = errors.New("invalid local file")
	ErrInvalidPath        = errors.New("invalid remote path")
	ErrUnexpectedResponse = errors.New("unexpected remote response")
	ErrMalformedResponse  = errors.New("malformed remote response")
)

// InvalidFileError 本地文件缺失、为空或超出上传策略的大小限制
type InvalidFileError struct {
	Path   string
	Reason string
}

func (e *InvalidFileError) Error() string {
	return fmt.Sprintf("invalid file '%s': %s", e.Path, e.Reason)
}

func (e *InvalidFileError) Is(target error) bool {
	return target == ErrInvalidFile
}

// UnexpectedResponseError 远端返回了不在允许集合内的状态码
type UnexpectedResponseError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *UnexpectedResponseError) Error() string {
	msg := fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *UnexpectedResponseError) Is(target error) bool {
	return target == ErrUnexpectedResponse
}

// MalformedResponseError 远端响应缺少必需字段或格式错误
type MalformedResponseError struct {
	Field string
	Err   error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed response (%s): %v", e.Field, e.Err)
	}
	return fmt.Sprintf("malformed response: missing %s", e.Field)
}

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
