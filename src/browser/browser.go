//go:generate go run go.uber.org/mock/mockgen -package mock -destination mock/mock.go github.com/bililive-go/toffeelive-go/src/browser Session

// Package browser 封装无头浏览器：打开观看页，记录页面发起的网络响应和控制台输出
package browser

import (
	"context"
	"time"
)

// ResponseEvent 页面加载过程中收到的一次网络响应
type ResponseEvent struct {
	URL      string
	Status   int
	MimeType string
	// Completed 响应体已经完整接收
	Completed bool
}

// Session 一个长期存活的浏览器会话，同一时间只处理一个页面
type Session interface {
	// Navigate 带上 headers 打开 url，之前记录的事件会被清空
	Navigate(ctx context.Context, url string, headers map[string]string) error
	// AwaitSettled 等待页面上的播放器发起请求
	AwaitSettled(ctx context.Context, d time.Duration) error
	CapturedResponses() []ResponseEvent
	ConsoleMessages() []string
	Close() error
}

// Factory 创建浏览器会话，失败时调用方退回到纯 HTTP 模式
type Factory func(ctx context.Context) (Session, error)
