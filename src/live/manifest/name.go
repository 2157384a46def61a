package manifest

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/bililive-go/toffeelive-go/src/live"
)

// ChannelName 从 /live/<segment>/<file> 形式的地址推导频道名，
// 例如 .../live/sony_sports_1_hd/playlist.m3u8 -> "Sony Sports 1 Hd"。
// 不符合该形式时返回 live.UnknownChannelName。
func ChannelName(streamURL string) string {
	u, err := url.Parse(streamURL)
	if err != nil {
		return live.UnknownChannelName
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	n := len(segs)
	if n < 3 || segs[n-3] != "live" || segs[n-2] == "" || segs[n-1] == "" {
		return live.UnknownChannelName
	}
	name := strings.TrimSpace(titleCase(strings.ReplaceAll(segs[n-2], "_", " ")))
	if name == "" {
		return live.UnknownChannelName
	}
	return name
}

// titleCase 每个字母段首字母大写、其余小写，数字和符号视为分隔
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
