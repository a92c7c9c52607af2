package httpcache

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"bakpdlbot/internal/components/chrono"
	"bakpdlbot/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

type cacheFixture struct {
	server *httptest.Server
	hits   *atomic.Int64
	client *http.Client
	tport  *Transport
	clock  *chrono.ManualTime
}

func newCacheFixture(t *testing.T, shouldStore func(*http.Response, []byte) bool) cacheFixture {
	hits := &atomic.Int64{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/forbidden":
			w.WriteHeader(http.StatusForbidden)
			io.WriteString(w, "nope")
		case "/login":
			io.WriteString(w, `<form id="login"></form>`)
		case "/moved":
			http.Redirect(w, r, "/profile.php?z=1", http.StatusFound)
		default:
			http.SetCookie(w, &http.Cookie{Name: "phpbb3_sid", Value: "abc"})
			io.WriteString(w, "hello "+r.URL.Query().Get("z"))
		}
	}))
	t.Cleanup(server.Close)

	clock := chrono.NewManualTime(epoch)
	tport := NewTransport(nil, TransportOptions{
		Store:       newSQLiteStore(t, clock),
		Expiry:      time.Hour,
		Time:        clock,
		ShouldStore: shouldStore,
		Telemetry:   telemetry.NewRecorder(),
	})

	return cacheFixture{
		server: server,
		hits:   hits,
		client: &http.Client{Transport: tport},
		tport:  tport,
		clock:  clock,
	}
}

func (f cacheFixture) get(t *testing.T, ctx context.Context, path string) (*http.Response, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.server.URL+path, nil)
	require.NoError(t, err)
	res, err := f.client.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(body)
}

func TestTransportServesFreshEntries(t *testing.T) {
	f := newCacheFixture(t, nil)
	ctx := context.Background()

	res, body := f.get(t, ctx, "/profile.php?z=1")
	require.False(t, FromCache(res))
	require.Equal(t, "hello 1", body)

	res, body = f.get(t, ctx, "/profile.php?z=1#ignored")
	require.True(t, FromCache(res))
	require.Equal(t, "hello 1", body)
	require.Empty(t, res.Header.Values("Set-Cookie"))
	require.Equal(t, int64(1), f.hits.Load())

	f.clock.Advance(time.Hour * 2)
	res, _ = f.get(t, ctx, "/profile.php?z=1")
	require.False(t, FromCache(res), "expired entries must be refetched")
	require.Equal(t, int64(2), f.hits.Load())
}

func TestTransportSkipsFailures(t *testing.T) {
	f := newCacheFixture(t, func(_ *http.Response, body []byte) bool {
		return !strings.Contains(string(body), `id="login"`)
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, _ := f.get(t, ctx, "/forbidden")
		require.Equal(t, http.StatusForbidden, res.StatusCode)
		require.False(t, FromCache(res))

		res, _ = f.get(t, ctx, "/login")
		require.False(t, FromCache(res))
	}
	require.Equal(t, int64(4), f.hits.Load())
}

func TestTransportWithoutCache(t *testing.T) {
	f := newCacheFixture(t, nil)
	ctx := context.Background()

	res, _ := f.get(t, WithoutCache(ctx), "/profile.php?z=2")
	require.False(t, FromCache(res))
	res, _ = f.get(t, ctx, "/profile.php?z=2")
	require.False(t, FromCache(res), "requests without cache must not write to it")

	res, _ = f.get(t, WithoutCache(ctx), "/profile.php?z=2")
	require.False(t, FromCache(res), "requests without cache must not read from it")
	require.Equal(t, int64(3), f.hits.Load())
	require.False(t, Disabled(ctx))
}

func TestTransportInvalidate(t *testing.T) {
	f := newCacheFixture(t, nil)
	ctx := context.Background()

	f.get(t, ctx, "/team.php?id=3")
	require.NoError(t, f.tport.Invalidate(ctx, f.server.URL+"/team.php?id=3"))

	res, _ := f.get(t, ctx, "/team.php?id=3")
	require.False(t, FromCache(res))
	require.Equal(t, int64(2), f.hits.Load())
}

func TestTransportHopsThroughRedirect(t *testing.T) {
	f := newCacheFixture(t, nil)
	ctx := context.Background()
	f.get(t, ctx, "/profile.php?z=1")

	tracked, hops := TrackHops(ctx)
	res, body := f.get(t, tracked, "/moved")
	require.True(t, FromCache(res), "the redirect target is served from the store")
	require.Equal(t, "hello 1", body)
	require.True(t, hops.Network(), "the redirect itself was fetched upstream")

	tracked, hops = TrackHops(ctx)
	res, _ = f.get(t, tracked, "/profile.php?z=1")
	require.True(t, FromCache(res))
	require.False(t, hops.Network())

	tracked, hops = TrackHops(WithoutCache(ctx))
	f.get(t, tracked, "/profile.php?z=1")
	require.True(t, hops.Network())
}
