// Package proxy 提供代理配置和管理功能
package proxy

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"

	"golang.org/x/net/proxy"

	"github.com/bililive-go/toffeelive-go/src/configs"
)

// GetProxyURL 获取当前生效的代理 URL
// 优先级：配置文件 > 环境变量 (ALL_PROXY > HTTPS_PROXY > HTTP_PROXY)
func GetProxyURL(cfg *configs.Config) string {
	if cfg != nil && cfg.Proxy.Enable && cfg.Proxy.URL != "" {
		return cfg.Proxy.URL
	}

	for _, envVar := range []string{"ALL_PROXY", "all_proxy", "HTTPS_PROXY", "https_proxy", "HTTP_PROXY", "http_proxy"} {
		if proxyURL := os.Getenv(envVar); proxyURL != "" {
			return proxyURL
		}
	}

	return ""
}

func isSocks5(proxyURL string) bool {
	return strings.HasPrefix(proxyURL, "socks5://") || strings.HasPrefix(proxyURL, "socks5h://")
}

// CreateSocks5DialContext 为 SOCKS5 代理创建 DialContext 函数
func CreateSocks5DialContext(proxyURL string) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		parsedURL, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}

		var auth *proxy.Auth
		if parsedURL.User != nil {
			auth = &proxy.Auth{
				User: parsedURL.User.Username(),
			}
			if password, ok := parsedURL.User.Password(); ok {
				auth.Password = password
			}
		}

		dialer, err := proxy.SOCKS5("tcp", parsedURL.Host, auth, proxy.Direct)
		if err != nil {
			return nil, err
		}
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			return cd.DialContext(ctx, network, addr)
		}
		return dialer.Dial(network, addr)
	}
}

// ApplyProxyToTransport 将代理设置应用到 http.Transport
func ApplyProxyToTransport(cfg *configs.Config, transport *http.Transport) {
	proxyURL := GetProxyURL(cfg)
	if proxyURL == "" {
		transport.Proxy = http.ProxyFromEnvironment
		return
	}

	if isSocks5(proxyURL) {
		// SOCKS5 代理需要通过 DialContext 处理
		transport.Proxy = nil
		transport.DialContext = CreateSocks5DialContext(proxyURL)
		return
	}
	parsedURL, err := url.Parse(proxyURL)
	if err != nil {
		transport.Proxy = http.ProxyFromEnvironment
		return
	}
	transport.Proxy = http.ProxyURL(parsedURL)
}

// BrowserProxyServer 返回传给 Chrome --proxy-server 的地址，没有代理时返回空串。
// Chrome 不支持带认证信息的代理地址，这里会去掉 userinfo。
func BrowserProxyServer(cfg *configs.Config) string {
	proxyURL := GetProxyURL(cfg)
	if proxyURL == "" {
		return ""
	}
	parsedURL, err := url.Parse(proxyURL)
	if err != nil || parsedURL.Host == "" {
		return ""
	}
	scheme := parsedURL.Scheme
	if scheme == "socks5h" {
		scheme = "socks5"
	}
	return scheme + "://" + parsedURL.Host
}
