// Package credential 从种子页面中提取 Edge-Cache-Cookie
package credential

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/bililive-go/toffeelive-go/src/live"
)

// Extractor 从文本中提取 cookie 值，找不到时返回 false
type Extractor func(text string) (string, bool)

func regexpExtractor(pattern string) Extractor {
	re := regexp.MustCompile(pattern)
	return func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 || m[1] == "" {
			return "", false
		}
		return m[1], true
	}
}

// Extractors 按优先级排列，第一个命中的生效
var Extractors = []Extractor{
	// Edge-Cache-Cookie=value
	regexpExtractor(`Edge-Cache-Cookie=([^;\\"'\s<>]+)`),
	// Edge-Cache-Cookie="value" 或 "Edge-Cache-Cookie":"value"
	regexpExtractor(`Edge-Cache-Cookie"?\s*[=:]\s*"([^"\\]+)"`),
	// Edge-Cache-Cookie: value
	regexpExtractor(`Edge-Cache-Cookie:\s*([^;\\"'\s<>]+)`),
}

// Extract 依次尝试 Extractors，返回 "Edge-Cache-Cookie=<value>"
func Extract(text string) (live.Credential, bool) {
	for _, extract := range Extractors {
		if v, ok := extract(text); ok {
			return live.Credential(live.CookieName + "=" + v), true
		}
	}
	return "", false
}

// Acquirer 请求种子页面并提取凭证
type Acquirer struct {
	getter live.Getter
	logger *logrus.Entry
}

func NewAcquirer(getter live.Getter, logger *logrus.Entry) *Acquirer {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Acquirer{
		getter: getter,
		logger: logger.WithField("component", "credential"),
	}
}

// Fetch 请求 seedURL 并提取凭证。
// 非 200 返回 *live.HTTPError，响应中没有凭证返回 live.ErrCookieNotFound。
func (a *Acquirer) Fetch(ctx context.Context, seedURL string) (live.Credential, error) {
	page, err := a.getter.Get(ctx, seedURL)
	if err != nil {
		return "", err
	}
	if !page.OK() {
		return "", &live.HTTPError{URL: seedURL, Status: page.Status}
	}
	if cred, ok := Extract(string(page.Body)); ok {
		a.logger.Debugf("extracted credential from body: %s", cred.Masked())
		return cred, nil
	}
	// 响应体里没有时再看 Set-Cookie
	if cred, ok := Extract(setCookieText(page.Header)); ok {
		a.logger.Debugf("extracted credential from Set-Cookie: %s", cred.Masked())
		return cred, nil
	}
	return "", live.ErrCookieNotFound
}

func setCookieText(h http.Header) string {
	if h == nil {
		return ""
	}
	return strings.Join(h.Values("Set-Cookie"), "\n")
}
