package locator

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bililive-go/toffeelive-go/src/live"
)

type fakeGetter map[string]*live.Page

func (f fakeGetter) Get(_ context.Context, rawURL string) (*live.Page, error) {
	page, ok := f[rawURL]
	if !ok {
		return nil, &live.TransportError{URL: rawURL, Err: errors.New("connection refused")}
	}
	return page, nil
}

const directory = "https://toffeelive.com/en/live"

func TestParseLinks(t *testing.T) {
	body := `<html><body>
<a href="/en/watch/sony-sports-1">  Sony   Sports 1 </a>
<a href="https://toffeelive.com/en/watch/t-sports"><div><span>T Sports</span></div></a>
<a href="/en/watch/empty"><img src="x.png"></a>
<a href="/en/watch/sony-sports-1">Sony Sports 1</a>
<a href="/en/watch/a-sports"> A <b>Live</b> Sports </a>
<a href="/en/watch/icon-first"><img src="x.png"><span>Gazi TV</span></a>
<a href="/en/about">About</a>
<a>no href</a>
</body></html>`

	refs, err := ParseLinks([]byte(body), directory, "/watch/")
	require.NoError(t, err)
	assert.Equal(t, []live.ChannelReference{
		{Name: "Sony Sports 1", PageURL: "https://toffeelive.com/en/watch/sony-sports-1"},
		{Name: "T Sports", PageURL: "https://toffeelive.com/en/watch/t-sports"},
		{Name: live.UnknownChannelName, PageURL: "https://toffeelive.com/en/watch/empty"},
		{Name: "Sony Sports 1", PageURL: "https://toffeelive.com/en/watch/sony-sports-1"},
		{Name: "A Sports", PageURL: "https://toffeelive.com/en/watch/a-sports"},
		{Name: live.UnknownChannelName, PageURL: "https://toffeelive.com/en/watch/icon-first"},
	}, refs)
}

func TestLinks(t *testing.T) {
	getter := fakeGetter{directory: {
		Status: http.StatusOK,
		Body:   []byte(`<a href="/en/watch/ntv">NTV</a>`),
	}}
	refs, err := Links(context.Background(), getter, directory, "/watch/")
	require.NoError(t, err)
	assert.Equal(t, []live.ChannelReference{{Name: "NTV", PageURL: "https://toffeelive.com/en/watch/ntv"}}, refs)
}

func TestLinks_Failures(t *testing.T) {
	getter := fakeGetter{directory: {Status: http.StatusForbidden}}
	refs, err := Links(context.Background(), getter, directory, "/watch/")
	assert.Empty(t, refs)
	status, ok := live.IsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusForbidden, status)

	refs, err = Links(context.Background(), fakeGetter{}, directory, "/watch/")
	assert.Empty(t, refs)
	var te *live.TransportError
	assert.ErrorAs(t, err, &te)
}

func TestDirect(t *testing.T) {
	getter := fakeGetter{directory: {
		Status: http.StatusOK,
		Body: []byte(`<script>
var a = "https://bldcmprod-cdn.toffeelive.com/live/sony_sports_1_hd/playlist.m3u8";
var b = "https://bldcmprod-cdn.toffeelive.com/live/sony_sports_1_hd/playlist.m3u8";
var c = "https://mirror.example.org/live/sony_sports_1_hd/playlist.m3u8";
</script>`),
	}}
	urls, err := Direct(context.Background(), getter, directory, "bldcmprod-cdn.toffeelive.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://bldcmprod-cdn.toffeelive.com/live/sony_sports_1_hd/playlist.m3u8"}, urls)

	urls, err = Direct(context.Background(), fakeGetter{directory: {Status: http.StatusBadGateway}}, directory, "bldcmprod-cdn.toffeelive.com")
	assert.Empty(t, urls)
	assert.Error(t, err)
}
