package live

import (
	"errors"
	"fmt"
)

var (
	// ErrCookieNotFound 页面请求成功，但响应中找不到 Edge-Cache-Cookie
	ErrCookieNotFound = errors.New("edge cache cookie not found")
	// ErrCredentialUnavailable 多次重试后仍未拿到 Edge-Cache-Cookie
	ErrCredentialUnavailable = errors.New("credential unavailable")
	// ErrInvalidURL 请求地址无法解析或缺少主机，不再重试
	ErrInvalidURL = errors.New("invalid url")
	// ErrUnresolved 频道在重试后仍未找到 m3u8 地址
	ErrUnresolved = errors.New("manifest unresolved")
)

// HTTPError 上游返回了非 200 的状态码
type HTTPError struct {
	URL    string
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Status, e.URL)
}

// TransportError 网络层面的失败（连接、超时、读取响应体等）
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// WriteError 输出文件写入失败
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsHTTPError 判断 err 是否为 HTTPError，并返回其状态码
func IsHTTPError(err error) (int, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status, true
	}
	return 0, false
}
