// Package manifest 从页面或浏览器会话中找出频道的 m3u8 地址
package manifest

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

const manifestExt = ".m3u8"

var (
	// plainPattern 任意 http(s) 的 .m3u8 地址，遇到第一个 .m3u8 即结束
	plainPattern = regexp.MustCompile(`https?://[^\s"'<>\\]+?\.m3u8(?:\?[^\s"'<>\\]*)?`)
	// jsonURLPattern "url":"https://...m3u8"
	jsonURLPattern = regexp.MustCompile(`"url"\s*:\s*"(https?://[^"]+?\.m3u8[^"]*)"`)

	unescaper = strings.NewReplacer(
		`\/`, `/`,
		`\u002F`, `/`,
		`\u002f`, `/`,
		`\u0026`, `&`,
	)
)

func hostPattern(host string) *regexp.Regexp {
	return regexp.MustCompile(`https?://` + regexp.QuoteMeta(host) + `/[^\s"'<>\\]+?\.m3u8(?:\?[^\s"'<>\\]*)?`)
}

// ExtractStatic 从页面中提取 host 下的 m3u8 地址，按首次出现的顺序去重
func ExtractStatic(body []byte, host string) []string {
	text := unescaper.Replace(string(body))

	var candidates []string
	candidates = append(candidates, plainPattern.FindAllString(text, -1)...)
	candidates = append(candidates, hostPattern(host).FindAllString(text, -1)...)
	for _, m := range jsonURLPattern.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, embeddedState(body)...)

	return filterHost(candidates, host)
}

// embeddedState 遍历 __NEXT_DATA__ 等内嵌 JSON，收集所有以 .m3u8 结尾的字符串
func embeddedState(body []byte) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	var found []string
	doc.Find(`script#__NEXT_DATA__, script[type="application/json"], script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if !gjson.Valid(raw) {
			return
		}
		walk(gjson.Parse(raw), &found)
	})
	return found
}

func walk(v gjson.Result, found *[]string) {
	switch {
	case v.IsObject() || v.IsArray():
		v.ForEach(func(_, child gjson.Result) bool {
			walk(child, found)
			return true
		})
	case v.Type == gjson.String:
		s := v.String()
		if strings.HasPrefix(s, "http") && isManifest(s) {
			*found = append(*found, s)
		}
	}
}

func isManifest(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(u.Path, manifestExt)
}

// MatchesHost 判断 rawURL 的主机是否为 host
func MatchesHost(rawURL, host string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), host)
}

func filterHost(candidates []string, host string) []string {
	seen := make(map[string]struct{}, len(candidates))
	urls := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !MatchesHost(c, host) {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		urls = append(urls, c)
	}
	return urls
}
