package browser

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/bililive-go/toffeelive-go/src/pkg/retry"
)

// Options 启动 Chrome 的参数
type Options struct {
	Headless    bool
	ExecPath    string
	UserAgent   string
	ProxyServer string
	// Timeout 单次导航的超时，<=0 表示只受调用方 ctx 限制
	Timeout time.Duration
}

// 这些头由浏览器自己管理，不能通过 SetExtraHTTPHeaders 覆盖
var skippedHeaders = map[string]bool{
	"connection":      true,
	"accept-encoding": true,
	"host":            true,
	"content-length":  true,
}

// Chrome 基于 chromedp 的 Session 实现
type Chrome struct {
	opts   Options
	logger *logrus.Entry

	allocCancel context.CancelFunc
	taskCtx     context.Context
	taskCancel  context.CancelFunc
	closeOnce   sync.Once

	mu        sync.Mutex
	responses []ResponseEvent
	byRequest map[network.RequestID]int
	console   []string
}

var _ Session = (*Chrome)(nil)

// NewChrome 启动浏览器并打开一个空白标签页。
// 浏览器生命周期与 ctx 无关，必须调用 Close 释放。
func NewChrome(ctx context.Context, opts Options, logger *logrus.Entry) (*Chrome, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("autoplay-policy", "no-user-gesture-required"),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ProxyServer != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.ProxyServer))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	c := &Chrome{
		opts:        opts,
		logger:      logger.WithField("component", "browser"),
		allocCancel: allocCancel,
		taskCtx:     taskCtx,
		taskCancel:  taskCancel,
		byRequest:   make(map[network.RequestID]int),
	}
	chromedp.ListenTarget(taskCtx, c.onEvent)

	// 第一次 Run 会启动浏览器进程，必须直接用 taskCtx，派生的超时 ctx 结束时会连带关闭浏览器
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	err := chromedp.Run(taskCtx, network.Enable(), runtime.Enable())
	stop()
	if err != nil {
		_ = c.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	c.logger.Debug("browser started")
	return c, nil
}

func (c *Chrome) onEvent(ev interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch e := ev.(type) {
	case *network.EventResponseReceived:
		if e.Response == nil {
			return
		}
		c.byRequest[e.RequestID] = len(c.responses)
		c.responses = append(c.responses, ResponseEvent{
			URL:      e.Response.URL,
			Status:   int(e.Response.Status),
			MimeType: e.Response.MimeType,
		})
	case *network.EventLoadingFinished:
		if i, ok := c.byRequest[e.RequestID]; ok {
			c.responses[i].Completed = true
		}
	case *runtime.EventConsoleAPICalled:
		for _, arg := range e.Args {
			val := strings.Trim(string(arg.Value), `"`)
			if val == "" {
				val = arg.Description
			}
			if val != "" {
				c.console = append(c.console, val)
			}
		}
	}
}

// run 在标签页上执行 actions，受 ctx 和导航超时共同限制
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.taskCtx)
	defer cancel()
	if c.opts.Timeout > 0 {
		var timeoutCancel context.CancelFunc
		runCtx, timeoutCancel = context.WithTimeout(runCtx, c.opts.Timeout)
		defer timeoutCancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *Chrome) Navigate(ctx context.Context, url string, headers map[string]string) error {
	c.mu.Lock()
	c.responses = nil
	c.byRequest = make(map[network.RequestID]int)
	c.console = nil
	c.mu.Unlock()

	extra := network.Headers{}
	for k, v := range headers {
		if skippedHeaders[strings.ToLower(k)] {
			continue
		}
		extra[k] = v
	}
	c.logger.WithField("url", url).Debug("navigating")
	return c.run(ctx,
		network.SetExtraHTTPHeaders(extra),
		chromedp.Navigate(url),
	)
}

func (c *Chrome) AwaitSettled(ctx context.Context, d time.Duration) error {
	if !retry.Sleep(ctx, d) {
		return ctx.Err()
	}
	if err := c.taskCtx.Err(); err != nil {
		return errors.New("browser closed")
	}
	return nil
}

func (c *Chrome) CapturedResponses() []ResponseEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ResponseEvent(nil), c.responses...)
}

func (c *Chrome) ConsoleMessages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.console...)
}

// Close 关闭浏览器进程，可以重复调用
func (c *Chrome) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = chromedp.Cancel(c.taskCtx)
		c.taskCancel()
		c.allocCancel()
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	})
	return err
}
