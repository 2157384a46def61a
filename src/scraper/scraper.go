// Package scraper 串起一次完整的发现流程：凭证 -> 频道列表 -> m3u8 -> 结果
package scraper

import (
	"context"
	"time"

	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"github.com/bililive-go/toffeelive-go/src/browser"
	"github.com/bililive-go/toffeelive-go/src/configs"
	"github.com/bililive-go/toffeelive-go/src/live"
	"github.com/bililive-go/toffeelive-go/src/live/locator"
	"github.com/bililive-go/toffeelive-go/src/live/manifest"
	"github.com/bililive-go/toffeelive-go/src/live/session"
	"github.com/bililive-go/toffeelive-go/src/metrics"
)

const (
	StrategyLinks  = "markup-link"
	StrategyDirect = "direct-manifest"
)

// Result 一次运行的结果。Channels 按发现顺序排列，m3u8 地址不重复。
type Result struct {
	RunID      string
	Strategy   string
	Channels   []live.Channel
	Credential live.Credential
	// Unresolved 重试后仍未找到 m3u8 的频道
	Unresolved []live.ChannelReference
	// DirectoryErr 目录页请求失败，此时 Channels 为空但不代表站点没有频道
	DirectoryErr error
	Duration     time.Duration
}

type Scraper struct {
	cfg      *configs.Config
	browsers browser.Factory
	metrics  *metrics.Metrics
	logger   *logrus.Entry
	now      func() time.Time
}

// New browsers 为 nil 或 cfg.Browser.Enable 为 false 时只使用 direct-manifest
func New(cfg *configs.Config, browsers browser.Factory, m *metrics.Metrics, logger *logrus.Entry) *Scraper {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Scraper{
		cfg:      cfg,
		browsers: browsers,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Run 执行一次发现。发现失败不返回 error，只有配置错误和 ctx 取消才返回；
// 取消时同样返回已经得到的部分结果。会话和浏览器在返回前释放。
func (s *Scraper) Run(ctx context.Context) (*Result, error) {
	start := s.now()
	res := &Result{RunID: uuid.Must(uuid.NewV4()).String()}
	logger := s.logger.WithField("run_id", res.RunID)

	sess, err := session.New(s.cfg, logger, s.metrics)
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	defer func() {
		res.Credential = sess.Credential()
		res.Duration = s.now().Sub(start)
		s.metrics.SetResult(len(res.Channels), len(res.Unresolved), res.Duration.Seconds())
	}()

	if _, _, err := sess.Acquire(ctx); err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		logger.WithError(err).Warn("continuing without credential")
	}

	b := s.openBrowser(ctx, logger)
	if b != nil {
		defer func() {
			if err := b.Close(); err != nil {
				logger.WithError(err).Warn("failed to close browser")
			}
		}()
		if err := s.resolveLinks(ctx, sess, b, res, logger); err != nil {
			return res, err
		}
		if len(res.Channels) > 0 || res.DirectoryErr != nil {
			return res, nil
		}
		logger.Info("no channel resolved from watch pages, scanning directory directly")
	}

	if err := s.resolveDirect(ctx, sess, res, logger); err != nil {
		return res, err
	}
	return res, nil
}

func (s *Scraper) openBrowser(ctx context.Context, logger *logrus.Entry) browser.Session {
	if !s.cfg.Browser.Enable || s.browsers == nil {
		return nil
	}
	b, err := s.browsers(ctx)
	if err != nil {
		logger.WithError(err).Warn("browser unavailable, using direct manifest scan")
		return nil
	}
	return b
}

// withRefresh 目录页返回非 200 且持有凭证时，换一个凭证再试一次
func (s *Scraper) withRefresh(ctx context.Context, sess *session.Manager, logger *logrus.Entry, fn func() error) error {
	err := fn()
	if _, ok := live.IsHTTPError(err); !ok || sess.Credential().IsZero() {
		return err
	}
	logger.WithError(err).Warn("directory rejected credential, refreshing")
	if _, _, rerr := sess.Refresh(ctx); rerr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.WithError(rerr).Warn("refresh failed, retrying without credential")
	}
	return fn()
}

func (s *Scraper) resolveLinks(ctx context.Context, sess *session.Manager, b browser.Session, res *Result, logger *logrus.Entry) error {
	res.Strategy = StrategyLinks
	directoryURL := s.cfg.LiveURL()

	var refs []live.ChannelReference
	err := s.withRefresh(ctx, sess, logger, func() (err error) {
		refs, err = locator.Links(ctx, sess, directoryURL, s.cfg.WatchSegment)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.WithError(err).Error("failed to load channel directory")
		res.DirectoryErr = err
		return nil
	}
	logger.Infof("found %d channel links", len(refs))

	resolver := manifest.NewResolver(s.cfg, b, sess, s.metrics, logger)
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		ch, err := resolver.Resolve(ctx, ref)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.WithField("channel", ref.PageURL).WithError(err).Warn("dropping unresolved channel")
			res.Unresolved = append(res.Unresolved, ref)
			continue
		}
		if _, ok := seen[ch.StreamURL]; ok {
			continue
		}
		seen[ch.StreamURL] = struct{}{}
		res.Channels = append(res.Channels, ch)
	}
	if len(res.Unresolved) > 0 {
		logger.Warnf("%d of %d channel links unresolved", len(res.Unresolved), len(refs))
	}
	return nil
}

func (s *Scraper) resolveDirect(ctx context.Context, sess *session.Manager, res *Result, logger *logrus.Entry) error {
	res.Strategy = StrategyDirect
	directoryURL := s.cfg.LiveURL()

	var urls []string
	err := s.withRefresh(ctx, sess, logger, func() (err error) {
		urls, err = locator.Direct(ctx, sess, directoryURL, s.cfg.StreamHost)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.WithError(err).Error("failed to load channel directory")
		res.DirectoryErr = err
		return nil
	}

	now := s.now()
	seen := make(map[string]struct{}, len(res.Channels))
	for _, ch := range res.Channels {
		seen[ch.StreamURL] = struct{}{}
	}
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		res.Channels = append(res.Channels, live.Channel{
			Name:         manifest.ChannelName(u),
			PageURL:      directoryURL,
			StreamURL:    u,
			DiscoveredAt: now,
		})
	}
	logger.Infof("found %d manifests in directory page", len(urls))
	return nil
}
