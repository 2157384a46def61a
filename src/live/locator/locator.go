// Package locator 从直播目录页找出频道列表
package locator

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bililive-go/toffeelive-go/src/live"
	"github.com/bililive-go/toffeelive-go/src/live/manifest"
)

// Links 请求目录页，返回所有指向观看页的链接。
// 非 200 返回 *live.HTTPError，调用方把它当作空列表处理。
func Links(ctx context.Context, getter live.Getter, directoryURL, watchSegment string) ([]live.ChannelReference, error) {
	page, err := fetch(ctx, getter, directoryURL)
	if err != nil {
		return nil, err
	}
	return ParseLinks(page.Body, directoryURL, watchSegment)
}

// ParseLinks 选出 href 包含 watchSegment 的 <a>，相对地址按 base 补全。
// 名称优先取链接文字，其次取第一个子元素的文字。重复的链接保留，由下游按 m3u8 地址去重。
func ParseLinks(body []byte, base, watchSegment string) ([]live.ChannelReference, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, err
	}

	var refs []live.ChannelReference
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !strings.Contains(href, watchSegment) {
			return
		}
		target, err := baseURL.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		refs = append(refs, live.ChannelReference{
			Name:    linkName(s),
			PageURL: target.String(),
		})
	})
	return refs, nil
}

// linkName 优先取 <a> 自身的文本节点，其次取第一个子元素的文本
func linkName(s *goquery.Selection) string {
	var own strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			own.WriteString(c.Text())
			own.WriteString(" ")
		}
	})
	if name := strings.Join(strings.Fields(own.String()), " "); name != "" {
		return name
	}
	if name := strings.Join(strings.Fields(s.Children().First().Text()), " "); name != "" {
		return name
	}
	return live.UnknownChannelName
}

// Direct 请求目录页，直接在页面内容中查找 m3u8 地址，不打开观看页
func Direct(ctx context.Context, getter live.Getter, directoryURL, streamHost string) ([]string, error) {
	page, err := fetch(ctx, getter, directoryURL)
	if err != nil {
		return nil, err
	}
	return manifest.ExtractStatic(page.Body, streamHost), nil
}

func fetch(ctx context.Context, getter live.Getter, rawURL string) (*live.Page, error) {
	page, err := getter.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if !page.OK() {
		return nil, &live.HTTPError{URL: rawURL, Status: page.Status}
	}
	return page, nil
}
