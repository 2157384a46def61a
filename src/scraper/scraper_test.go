package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/bililive-go/toffeelive-go/src/browser"
	"github.com/bililive-go/toffeelive-go/src/browser/mock"
	"github.com/bililive-go/toffeelive-go/src/configs"
	"github.com/bililive-go/toffeelive-go/src/live"
	"github.com/bililive-go/toffeelive-go/src/metrics"
)

const sonyStream = "https://bldcmprod-cdn.toffeelive.com/cdn/live/sony_sports_1_hd/playlist.m3u8"

func testConfig(baseURL string, withBrowser bool) *configs.Config {
	cfg := configs.NewConfig()
	cfg.BaseURL = baseURL
	cfg.Retry.Delay = 0
	cfg.MinAccessInterval = 0
	cfg.Browser.Enable = withBrowser
	cfg.Browser.Settle = 0
	return cfg
}

func factoryOf(s browser.Session) browser.Factory {
	return func(context.Context) (browser.Session, error) { return s, nil }
}

func TestRun_DirectManifest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><script>document.cookie="Edge-Cache-Cookie=abc123;";
var streams = ["` + sonyStream + `", "` + sonyStream + `",
"https://cdn.other.net/cdn/live/sony_sports_1_hd/playlist.m3u8"];</script></html>`))
	}))
	defer srv.Close()

	m := metrics.New()
	res, err := New(testConfig(srv.URL, false), nil, m, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StrategyDirect, res.Strategy)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, live.Credential("Edge-Cache-Cookie=abc123"), res.Credential)
	assert.NoError(t, res.DirectoryErr)
	require.Len(t, res.Channels, 1)
	assert.Equal(t, "Sony Sports 1 Hd", res.Channels[0].Name)
	assert.Equal(t, sonyStream, res.Channels[0].StreamURL)
	assert.Equal(t, srv.URL+"/en/live", res.Channels[0].PageURL)
}

func TestRun_MarkupLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`Edge-Cache-Cookie=abc123;
<a href="/en/watch/a">Sony Sports 1</a>
<a href="/en/watch/b">Sony Sports 1 (again)</a>
<a href="/en/watch/c">Offline</a>`))
	}))
	defer srv.Close()

	ctrl := gomock.NewController(t)
	sess := mock.NewMockSession(ctrl)

	var (
		mu      sync.Mutex
		current string
		cookies []string
	)
	sess.EXPECT().Navigate(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, u string, headers map[string]string) error {
			mu.Lock()
			defer mu.Unlock()
			current = u
			cookies = append(cookies, headers["Cookie"])
			return nil
		}).AnyTimes()
	sess.EXPECT().AwaitSettled(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	sess.EXPECT().CapturedResponses().DoAndReturn(func() []browser.ResponseEvent {
		mu.Lock()
		defer mu.Unlock()
		if strings.HasSuffix(current, "/c") {
			return nil
		}
		return []browser.ResponseEvent{
			{URL: "https://ads.example.com/live/x/ad.m3u8", Status: 200, Completed: true},
			{URL: sonyStream, Status: 200, Completed: true},
		}
	}).AnyTimes()
	sess.EXPECT().ConsoleMessages().Return(nil).AnyTimes()
	sess.EXPECT().Close().Return(nil)

	res, err := New(testConfig(srv.URL, true), factoryOf(sess), nil, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StrategyLinks, res.Strategy)
	require.Len(t, res.Channels, 1)
	assert.Equal(t, "Sony Sports 1 Hd", res.Channels[0].Name)
	assert.Equal(t, srv.URL+"/en/watch/a", res.Channels[0].PageURL)
	assert.Equal(t, []live.ChannelReference{{Name: "Offline", PageURL: srv.URL + "/en/watch/c"}}, res.Unresolved)

	mu.Lock()
	defer mu.Unlock()
	// a、b 各一次，c 重试三次
	assert.Len(t, cookies, 5)
	for _, c := range cookies {
		assert.Equal(t, "Edge-Cache-Cookie=abc123", c)
	}
}

func TestRun_InterruptClosesBrowser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`Edge-Cache-Cookie=abc123; <a href="/en/watch/a">A</a><a href="/en/watch/b">B</a>`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := gomock.NewController(t)
	sess := mock.NewMockSession(ctrl)
	sess.EXPECT().Navigate(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, string, map[string]string) error {
			cancel()
			return context.Canceled
		})
	sess.EXPECT().Close().Return(nil).Times(1)

	res, err := New(testConfig(srv.URL, true), factoryOf(sess), nil, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Empty(t, res.Channels)
}

func TestRun_InterruptReleasesConnection(t *testing.T) {
	var hits int32
	started := make(chan struct{})
	gone := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			_, _ = w.Write([]byte(`Edge-Cache-Cookie=abc123;`))
			return
		}
		// 目录请求挂起，直到客户端断开
		close(started)
		select {
		case <-r.Context().Done():
			close(gone)
		case <-time.After(10 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-started
		cancel()
	}()

	res, err := New(testConfig(srv.URL, false), nil, nil, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Empty(t, res.Channels)

	select {
	case <-gone:
	case <-time.After(5 * time.Second):
		t.Fatal("directory request still open after Run returned")
	}
}

func TestRun_BrowserUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"url":"` + sonyStream + `"`))
	}))
	defer srv.Close()

	factory := func(context.Context) (browser.Session, error) {
		return nil, errors.New("chrome not found")
	}
	res, err := New(testConfig(srv.URL, true), factory, nil, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StrategyDirect, res.Strategy)
	assert.True(t, res.Credential.IsZero())
	require.Len(t, res.Channels, 1)
	assert.Equal(t, sonyStream, res.Channels[0].StreamURL)
}

func TestRun_DirectoryFailure(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	res, err := New(testConfig(srv.URL, false), nil, nil, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Channels)
	assert.True(t, res.Credential.IsZero())
	status, ok := live.IsHTTPError(res.DirectoryErr)
	assert.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, status)
	// 3 次凭证尝试 + 1 次目录请求，没有凭证时不刷新
	assert.EqualValues(t, 4, atomic.LoadInt32(&hits))
}

func TestRun_RefreshesCredentialOnce(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1:
			_, _ = w.Write([]byte(`Edge-Cache-Cookie=stale;`))
		case 2:
			w.WriteHeader(http.StatusForbidden)
		case 3:
			_, _ = w.Write([]byte(`Edge-Cache-Cookie=fresh;`))
		default:
			_, _ = w.Write([]byte(sonyStream))
		}
	}))
	defer srv.Close()

	res, err := New(testConfig(srv.URL, false), nil, nil, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, live.Credential("Edge-Cache-Cookie=fresh"), res.Credential)
	require.Len(t, res.Channels, 1)
	assert.NoError(t, res.DirectoryErr)
	assert.EqualValues(t, 4, atomic.LoadInt32(&hits))
}
