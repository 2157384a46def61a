package utils

import (
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/bililive-go/toffeelive-go/src/configs"
	"github.com/bililive-go/toffeelive-go/src/pkg/proxy"
)

// newProductionTransport creates a http.Transport with production-ready configuration.
func newProductionTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 20 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}

// CreateDefaultClient 创建带 cookie jar 的客户端，cookie 在同一次运行的所有请求间共享。
// 代理设置取自 cfg（为空时使用环境变量）。
func CreateDefaultClient(cfg *configs.Config) (*http.Client, error) {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := newProductionTransport()
	transport.DialContext = dialer.DialContext
	proxy.ApplyProxyToTransport(cfg, transport)

	jar, err := cookiejar.New(&cookiejar.Options{})
	if err != nil {
		return nil, err
	}
	client := &http.Client{Transport: transport, Jar: jar}
	if cfg != nil {
		client.Timeout = cfg.Timeout
	}
	return client, nil
}

// CloseIdleConnections 释放客户端持有的空闲连接
func CloseIdleConnections(client *http.Client) {
	if client == nil {
		return
	}
	client.CloseIdleConnections()
}

// DecodeBody 按 Content-Encoding 解压响应体。
// 手动设置 Accept-Encoding 后 net/http 不再自动解压，需要自行处理。
func DecodeBody(encoding string, body io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return body, nil
	case "gzip", "x-gzip":
		return gzip.NewReader(body)
	case "deflate":
		return flate.NewReader(body), nil
	case "br":
		return brotli.NewReader(body), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}
