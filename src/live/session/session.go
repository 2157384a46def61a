// Package session 管理一次运行内共享的 HTTP 会话：UA 轮换、公共请求头和 Edge-Cache-Cookie
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/hr3lxphr6j/requests"
	"github.com/sirupsen/logrus"

	"github.com/bililive-go/toffeelive-go/src/configs"
	"github.com/bililive-go/toffeelive-go/src/live"
	"github.com/bililive-go/toffeelive-go/src/live/credential"
	"github.com/bililive-go/toffeelive-go/src/metrics"
	"github.com/bililive-go/toffeelive-go/src/pkg/ratelimit"
	"github.com/bililive-go/toffeelive-go/src/pkg/retry"
	"github.com/bililive-go/toffeelive-go/src/pkg/utils"
)

const (
	headerAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
	headerAcceptLanguage = "en-US,en;q=0.9"
	headerAcceptEncoding = "gzip, deflate, br"
)

// Manager 持有 HTTP 客户端和当前凭证。
// 同一时间只有一个凭证，失效时整体替换。
type Manager struct {
	cfg      *configs.Config
	client   *http.Client
	session  *requests.Session
	limiter  *ratelimit.HostRateLimiter
	acquirer *credential.Acquirer
	policy   retry.Policy
	metrics  *metrics.Metrics
	logger   *logrus.Entry
	intn     func(n int) int

	// 所有请求都挂在 ctx 上，Close 时取消仍在进行的请求
	ctx        context.Context
	cancel     context.CancelFunc
	inflightMu sync.Mutex
	inflight   sync.WaitGroup
	closed     bool

	mu        sync.RWMutex
	userAgent string
	cred      live.Credential
}

// New 创建会话，m 可以为 nil
func New(cfg *configs.Config, logger *logrus.Entry, m *metrics.Metrics) (*Manager, error) {
	if len(cfg.UserAgents) == 0 {
		return nil, fmt.Errorf("user agent pool is empty")
	}
	client, err := utils.CreateDefaultClient(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	mgr := &Manager{
		cfg:     cfg,
		client:  client,
		limiter: ratelimit.New(cfg.MinAccessInterval),
		policy:  retry.Policy{MaxAttempts: cfg.Retry.MaxAttempts, Delay: cfg.Retry.Delay},
		metrics: m,
		logger:  logger.WithField("component", "session"),
		intn:    rand.Intn,
	}
	mgr.ctx, mgr.cancel = context.WithCancel(context.Background())
	// 公共请求头在 Transport 层补齐，UA 通过 requests.UserAgent 单独设置
	client.Transport = &headerTransport{base: client.Transport, mgr: mgr}
	mgr.session = requests.NewSession(client)
	mgr.acquirer = credential.NewAcquirer(mgr, logger)
	mgr.rotateUserAgent()
	return mgr, nil
}

func (m *Manager) rotateUserAgent() {
	ua := m.cfg.UserAgents[m.intn(len(m.cfg.UserAgents))]
	m.mu.Lock()
	m.userAgent = ua
	m.mu.Unlock()
}

// UserAgent 当前使用的 UA
func (m *Manager) UserAgent() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userAgent
}

// Credential 当前持有的凭证，没有时为空
func (m *Manager) Credential() live.Credential {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cred
}

// CurrentHeaders 返回当前请求头，持有凭证时带上 Cookie
func (m *Manager) CurrentHeaders() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	headers := map[string]string{
		"User-Agent":      m.userAgent,
		"Accept":          headerAccept,
		"Accept-Language": headerAcceptLanguage,
		"Accept-Encoding": headerAcceptEncoding,
		"Connection":      "keep-alive",
	}
	if !m.cred.IsZero() {
		headers["Cookie"] = string(m.cred)
	}
	return headers
}

// Acquire 获取凭证，最多尝试 cfg.Retry.MaxAttempts 次。
// 全部失败时返回 live.ErrCredentialUnavailable，但请求头仍然可用，调用方可以不带凭证继续。
func (m *Manager) Acquire(ctx context.Context) (map[string]string, live.Credential, error) {
	seedURL := m.cfg.LiveURL()
	var cred live.Credential
	err := m.policy.Do(ctx, func(attempt int) error {
		c, err := m.acquirer.Fetch(ctx, seedURL)
		m.metrics.ObserveCredentialAttempt(err == nil)
		if err != nil {
			m.logger.WithField("attempt", attempt).WithError(err).Warn("failed to acquire credential")
			if errors.Is(err, live.ErrInvalidURL) {
				return retry.Stop(err)
			}
			return err
		}
		cred = c
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return m.CurrentHeaders(), "", ctxErr
		}
		return m.CurrentHeaders(), "", fmt.Errorf("%w: %w", live.ErrCredentialUnavailable, err)
	}

	m.mu.Lock()
	m.cred = cred
	m.mu.Unlock()
	m.logger.Infof("credential acquired")
	m.logger.Debugf("credential: %s", cred.Masked())
	return m.CurrentHeaders(), cred, nil
}

// Refresh 丢弃当前凭证，换一个 UA 后重新获取
func (m *Manager) Refresh(ctx context.Context) (map[string]string, live.Credential, error) {
	m.mu.Lock()
	m.cred = ""
	m.mu.Unlock()
	m.rotateUserAgent()
	m.logger.Info("refreshing credential")
	return m.Acquire(ctx)
}

var errSessionClosed = errors.New("session closed")

type fetchResult struct {
	page *live.Page
	err  error
}

// Get 实现 live.Getter。
// 只有网络错误返回 error，非 200 的响应通过 Page.Status 交给调用方判断。
func (m *Manager) Get(ctx context.Context, rawURL string) (*live.Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &live.TransportError{URL: rawURL, Err: fmt.Errorf("%w: %v", live.ErrInvalidURL, err)}
	}
	if u.Host == "" {
		return nil, &live.TransportError{URL: rawURL, Err: fmt.Errorf("%w: missing host", live.ErrInvalidURL)}
	}
	if !m.limiter.Wait(ctx, u.Host) {
		return nil, ctx.Err()
	}

	m.inflightMu.Lock()
	if m.closed {
		m.inflightMu.Unlock()
		return nil, &live.TransportError{URL: rawURL, Err: errSessionClosed}
	}
	m.inflight.Add(1)
	m.inflightMu.Unlock()

	ch := make(chan fetchResult, 1)
	go func() {
		defer m.inflight.Done()
		page, err := m.fetch(rawURL)
		ch <- fetchResult{page: page, err: err}
	}()

	select {
	case <-ctx.Done():
		// 请求继续在后台进行，Close 时统一取消
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			m.metrics.ObserveFetch(u.Host, 0, r.err)
			return nil, &live.TransportError{URL: rawURL, Err: r.err}
		}
		m.metrics.ObserveFetch(u.Host, r.page.Status, nil)
		m.logger.Debugf("GET %s -> %d (%d bytes)", rawURL, r.page.Status, len(r.page.Body))
		return r.page, nil
	}
}

func (m *Manager) fetch(rawURL string) (*live.Page, error) {
	resp, err := m.session.Get(rawURL, requests.UserAgent(m.UserAgent()))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body []byte
	reader, err := utils.DecodeBody(resp.Header.Get("Content-Encoding"), resp.Body)
	if err == nil {
		body, err = io.ReadAll(reader)
	}
	if err != nil {
		if resp.StatusCode == http.StatusOK {
			return nil, err
		}
		// 错误页的响应体常常为空或与声明的编码不符，保留状态码即可
		m.logger.WithError(err).Debugf("discarding body of %s (status %d)", rawURL, resp.StatusCode)
		body = nil
	}
	return &live.Page{
		URL:    rawURL,
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}, nil
}

// Close 取消仍在进行的请求，等待其退出后释放空闲连接。可以重复调用。
func (m *Manager) Close() error {
	m.inflightMu.Lock()
	m.closed = true
	m.inflightMu.Unlock()

	m.cancel()
	m.inflight.Wait()
	utils.CloseIdleConnections(m.client)
	return nil
}

// headerTransport 为每个请求补齐公共请求头和凭证
type headerTransport struct {
	base http.RoundTripper
	mgr  *Manager
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(t.mgr.ctx)
	for k, v := range t.mgr.CurrentHeaders() {
		switch k {
		case "User-Agent":
			if req.Header.Get(k) == "" {
				req.Header.Set(k, v)
			}
		case "Cookie":
			mergeCookie(req.Header, v)
		default:
			req.Header.Set(k, v)
		}
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// mergeCookie 把凭证追加到已有 Cookie 上，cookie jar 可能已经写入同名 cookie
func mergeCookie(h http.Header, cred string) {
	existing := h.Get("Cookie")
	if existing == "" {
		h.Set("Cookie", cred)
		return
	}
	if strings.Contains(existing, live.CookieName+"=") {
		parts := strings.Split(existing, "; ")
		for i, p := range parts {
			if strings.HasPrefix(p, live.CookieName+"=") {
				parts[i] = cred
			}
		}
		h.Set("Cookie", strings.Join(parts, "; "))
		return
	}
	h.Set("Cookie", existing+"; "+cred)
}
