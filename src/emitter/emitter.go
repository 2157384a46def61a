// Package emitter 输出频道列表和播放器使用的 JSON 播放列表
package emitter

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"

	"github.com/bililive-go/toffeelive-go/src/consts"
	"github.com/bililive-go/toffeelive-go/src/live"
)

// TimestampLayout 频道列表中 timestamp 字段的格式（本地时间）
const TimestampLayout = "2006-01-02 15:04:05"

type channelRecord struct {
	Name      string `json:"name"`
	PageURL   string `json:"page_url"`
	StreamURL string `json:"stream_url"`
	Timestamp string `json:"timestamp"`
}

type playlistEntry struct {
	Name       string `json:"name"`
	Link       string `json:"link"`
	Logo       string `json:"logo"`
	Origin     string `json:"origin"`
	Referrer   string `json:"referrer"`
	UserAgent  string `json:"userAgent"`
	Cookie     string `json:"cookie"`
	DrmScheme  string `json:"drmScheme"`
	DrmLicense string `json:"drmLicense"`
}

var promoEntry = playlistEntry{
	Name: consts.PromoName,
	Link: consts.PromoLink,
}

// marshal 缩进输出且不转义 HTML 字符和非 ASCII 字符，末尾不带换行
func marshal(v interface{}, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalChannels 频道列表，4 空格缩进
func MarshalChannels(channels []live.Channel) ([]byte, error) {
	records := make([]channelRecord, 0, len(channels))
	for _, ch := range channels {
		records = append(records, channelRecord{
			Name:      ch.Name,
			PageURL:   ch.PageURL,
			StreamURL: ch.StreamURL,
			Timestamp: ch.DiscoveredAt.Local().Format(TimestampLayout),
		})
	}
	return marshal(records, "    ")
}

// MarshalPlaylist 播放列表，第一项固定为推广条目，2 空格缩进。
// streamHost 用于 origin 字段，cred 为空时 cookie 字段为空串。
func MarshalPlaylist(channels []live.Channel, cred live.Credential, streamHost string) ([]byte, error) {
	entries := make([]playlistEntry, 0, len(channels)+1)
	entries = append(entries, promoEntry)
	for _, ch := range channels {
		entries = append(entries, playlistEntry{
			Name:      ch.Name,
			Link:      ch.StreamURL,
			Origin:    "https://" + streamHost,
			UserAgent: consts.PlayerUserAgent,
			Cookie:    string(cred),
		})
	}
	return marshal(entries, "  ")
}

// Writer 覆盖写入两个输出文件
type Writer struct {
	ChannelsFile string
	PlaylistFile string
	StreamHost   string
}

// Write 两个文件互不影响，任一失败都以 *live.WriteError 返回，不重试
func (w *Writer) Write(channels []live.Channel, cred live.Credential) error {
	var errs []error

	if b, err := MarshalChannels(channels); err != nil {
		errs = append(errs, &live.WriteError{Path: w.ChannelsFile, Err: err})
	} else if err := writeFile(w.ChannelsFile, b); err != nil {
		errs = append(errs, err)
	}

	if b, err := MarshalPlaylist(channels, cred, w.StreamHost); err != nil {
		errs = append(errs, &live.WriteError{Path: w.PlaylistFile, Err: err})
	} else if err := writeFile(w.PlaylistFile, b); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func writeFile(path string, b []byte) error {
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return &live.WriteError{Path: path, Err: err}
	}
	return nil
}
