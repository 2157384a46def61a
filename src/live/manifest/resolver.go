package manifest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bluele/gcache"
	"github.com/sirupsen/logrus"

	"github.com/bililive-go/toffeelive-go/src/browser"
	"github.com/bililive-go/toffeelive-go/src/configs"
	"github.com/bililive-go/toffeelive-go/src/live"
	"github.com/bililive-go/toffeelive-go/src/metrics"
	"github.com/bililive-go/toffeelive-go/src/pkg/retry"
)

const cacheSize = 512

// HeaderSource 提供导航时使用的请求头
type HeaderSource interface {
	CurrentHeaders() map[string]string
}

// Resolver 用浏览器打开观看页，从网络响应或控制台输出中找出 m3u8 地址。
// 所有频道共用一个浏览器会话，必须顺序调用。
type Resolver struct {
	session browser.Session
	headers HeaderSource
	host    string
	settle  time.Duration
	policy  retry.Policy
	cache   gcache.Cache
	metrics *metrics.Metrics
	logger  *logrus.Entry
	now     func() time.Time
}

func NewResolver(cfg *configs.Config, session browser.Session, headers HeaderSource, m *metrics.Metrics, logger *logrus.Entry) *Resolver {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Resolver{
		session: session,
		headers: headers,
		host:    cfg.StreamHost,
		settle:  cfg.Browser.Settle,
		policy:  retry.Policy{MaxAttempts: cfg.Retry.MaxAttempts, Delay: cfg.Retry.Delay},
		cache:   gcache.New(cacheSize).LRU().Build(),
		metrics: m,
		logger:  logger.WithField("component", "resolver"),
		now:     time.Now,
	}
}

// Resolve 解析单个频道。重试用尽后返回 live.ErrUnresolved。
// 同一个观看页在一次运行中只解析一次。
func (r *Resolver) Resolve(ctx context.Context, ref live.ChannelReference) (live.Channel, error) {
	if v, err := r.cache.Get(ref.PageURL); err == nil {
		return v.(live.Channel), nil
	}

	logger := r.logger.WithField("channel", ref.PageURL)
	var streamURL string
	err := r.policy.Do(ctx, func(attempt int) error {
		u, err := r.attempt(ctx, ref.PageURL)
		if err != nil {
			logger.WithField("attempt", attempt).WithError(err).Debug("manifest not found yet")
			return err
		}
		streamURL = u
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return live.Channel{}, ctxErr
		}
		if errors.Is(err, live.ErrUnresolved) {
			return live.Channel{}, fmt.Errorf("%s: %w", ref.PageURL, err)
		}
		return live.Channel{}, fmt.Errorf("%s: %w: %w", ref.PageURL, live.ErrUnresolved, err)
	}

	ch := live.Channel{
		Name:         ChannelName(streamURL),
		PageURL:      ref.PageURL,
		StreamURL:    streamURL,
		DiscoveredAt: r.now(),
	}
	_ = r.cache.Set(ref.PageURL, ch)
	logger.WithField("stream", streamURL).Info("manifest resolved")
	return ch, nil
}

func (r *Resolver) attempt(ctx context.Context, pageURL string) (string, error) {
	err := r.session.Navigate(ctx, pageURL, r.headers.CurrentHeaders())
	r.metrics.ObserveNavigation(err == nil)
	if err != nil {
		return "", err
	}
	if err := r.session.AwaitSettled(ctx, r.settle); err != nil {
		return "", err
	}
	if u := r.fromResponses(r.session.CapturedResponses()); u != "" {
		return u, nil
	}
	if u := r.fromConsole(r.session.ConsoleMessages()); u != "" {
		return u, nil
	}
	return "", live.ErrUnresolved
}

// fromResponses 取第一个已完成且指向播放域名的 m3u8 响应
func (r *Resolver) fromResponses(events []browser.ResponseEvent) string {
	for _, ev := range events {
		if !ev.Completed || !strings.Contains(ev.URL, manifestExt) {
			continue
		}
		if MatchesHost(ev.URL, r.host) {
			return ev.URL
		}
	}
	return ""
}

func (r *Resolver) fromConsole(messages []string) string {
	for _, msg := range messages {
		for _, u := range plainPattern.FindAllString(unescaper.Replace(msg), -1) {
			if MatchesHost(u, r.host) {
				return u
			}
		}
	}
	return ""
}
