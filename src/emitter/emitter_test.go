package emitter

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bililive-go/toffeelive-go/src/consts"
	"github.com/bililive-go/toffeelive-go/src/live"
)

var discovered = time.Date(2024, 5, 1, 20, 30, 5, 0, time.Local)

func testChannels() []live.Channel {
	return []live.Channel{
		{
			Name:         "Sony Sports 1 Hd",
			PageURL:      "https://toffeelive.com/en/watch/sony",
			StreamURL:    "https://bldcmprod-cdn.toffeelive.com/live/sony_sports_1_hd/playlist.m3u8?a=1&b=2",
			DiscoveredAt: discovered,
		},
		{
			Name:         "সময় টিভি",
			PageURL:      "https://toffeelive.com/en/watch/somoy",
			StreamURL:    "https://bldcmprod-cdn.toffeelive.com/live/somoy_tv/playlist.m3u8",
			DiscoveredAt: discovered,
		},
	}
}

func TestMarshalChannels(t *testing.T) {
	b, err := MarshalChannels(testChannels())
	require.NoError(t, err)

	s := string(b)
	assert.True(t, strings.HasPrefix(s, "[\n    {\n        \"name\": \"Sony Sports 1 Hd\","), s)
	assert.Contains(t, s, `"timestamp": "2024-05-01 20:30:05"`)
	assert.Contains(t, s, "সময় টিভি")
	assert.Contains(t, s, "?a=1&b=2")
	assert.False(t, strings.HasSuffix(s, "\n"))

	var records []map[string]string
	require.NoError(t, json.Unmarshal(b, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "https://toffeelive.com/en/watch/somoy", records[1]["page_url"])
}

func TestMarshalChannels_Empty(t *testing.T) {
	b, err := MarshalChannels(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
}

func TestMarshalPlaylist(t *testing.T) {
	b, err := MarshalPlaylist(testChannels(), "Edge-Cache-Cookie=abc123", consts.DefaultStreamHost)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "[\n  {\n    \"name\": \"Join Our Telegram Channel\","))

	var entries []map[string]string
	require.NoError(t, json.Unmarshal(b, &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, map[string]string{
		"name": "Join Our Telegram Channel", "link": "https://t.me/live_cricket_24",
		"logo": "", "origin": "", "referrer": "", "userAgent": "", "cookie": "",
		"drmScheme": "", "drmLicense": "",
	}, entries[0])
	assert.Equal(t, map[string]string{
		"name": "Sony Sports 1 Hd", "link": "https://bldcmprod-cdn.toffeelive.com/live/sony_sports_1_hd/playlist.m3u8?a=1&b=2",
		"logo": "", "origin": "https://bldcmprod-cdn.toffeelive.com", "referrer": "",
		"userAgent": consts.PlayerUserAgent, "cookie": "Edge-Cache-Cookie=abc123",
		"drmScheme": "", "drmLicense": "",
	}, entries[1])
}

func TestMarshalPlaylist_NoChannels(t *testing.T) {
	b, err := MarshalPlaylist(nil, "", consts.DefaultStreamHost)
	require.NoError(t, err)

	var entries []map[string]string
	require.NoError(t, json.Unmarshal(b, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, consts.PromoName, entries[0]["name"])
}

func TestWriter_Write(t *testing.T) {
	dir := t.TempDir()
	w := &Writer{
		ChannelsFile: filepath.Join(dir, "toffee_channels.json"),
		PlaylistFile: filepath.Join(dir, "toffee_channels.m3u"),
		StreamHost:   consts.DefaultStreamHost,
	}
	require.NoError(t, os.WriteFile(w.ChannelsFile, []byte(strings.Repeat("x", 4096)), 0o644))

	require.NoError(t, w.Write(testChannels()[:1], ""))

	b, err := os.ReadFile(w.ChannelsFile)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "xxx")
	var records []map[string]string
	require.NoError(t, json.Unmarshal(b, &records))
	assert.Len(t, records, 1)

	b, err = os.ReadFile(w.PlaylistFile)
	require.NoError(t, err)
	var entries []map[string]string
	require.NoError(t, json.Unmarshal(b, &entries))
	assert.Len(t, entries, 2)
	assert.Equal(t, "", entries[1]["cookie"])
}

func TestWriter_WriteError(t *testing.T) {
	dir := t.TempDir()
	w := &Writer{
		ChannelsFile: filepath.Join(dir, "missing", "toffee_channels.json"),
		PlaylistFile: filepath.Join(dir, "toffee_channels.m3u"),
		StreamHost:   consts.DefaultStreamHost,
	}
	err := w.Write(nil, "")
	var we *live.WriteError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, w.ChannelsFile, we.Path)

	// 另一个文件照常写出
	_, statErr := os.Stat(w.PlaylistFile)
	assert.NoError(t, statErr)
}
