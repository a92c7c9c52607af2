package zwiftpower

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"bakpdlbot/internal/components/chrono"
	"bakpdlbot/internal/components/telemetry"
	"bakpdlbot/internal/httpcache"

	"github.com/stretchr/testify/require"
)

const (
	testUser     = "rider@example.com"
	testPassword = "hunter2"
	testSleep    = time.Second * 2
)

var testNow = time.Date(2024, time.May, 4, 13, 37, 0, 0, time.UTC)

const frontPageLoggedOut = `<html><body>
<form id="login" method="post">
	<a class="btn" href="/sso/auth?client_id=zwiftpower">Login with Zwift</a>
</form>
</body></html>`

const frontPageLoggedIn = `<html><body><div id="zp_submenu">welcome back</div></body></html>`

const ssoPage = `<html><body>
<form id="form" action=" /sso/submit?session_code=abc " method="post">
	<input type="hidden" name="csrf" value="token-1">
	<input type="checkbox" name="rememberMe" value="on">
	<input type="text" name="username">
	<input type="password" name="password">
	<input type="hidden" name="no_value">
	<input type="submit">
</form>
</body></html>`

// fakeZwiftPower serves zwiftpower shaped pages and counts every request.
type fakeZwiftPower struct {
	server *httptest.Server

	mutex        sync.Mutex
	pages        map[string]string
	redirects    map[string]string
	hits         map[string]int
	requireLogin bool
	acceptLogin  bool
	submitted    []url.Values
}

func newFakeZwiftPower(t *testing.T) *fakeZwiftPower {
	f := &fakeZwiftPower{
		pages:       map[string]string{},
		redirects:   map[string]string{},
		hits:        map[string]int{},
		acceptLogin: true,
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

// pageKey identifies a page by path and query, without the cache busting parameter.
func pageKey(u *url.URL) string {
	query := u.Query()
	query.Del("_")
	if len(query) == 0 {
		return u.Path
	}
	return u.Path + "?" + query.Encode()
}

func (f *fakeZwiftPower) serve(path, body string) {
	u, err := url.Parse(path)
	if err != nil {
		panic(err)
	}
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.pages[pageKey(u)] = body
}

// redirect answers `from` with a 302 to `to`.
func (f *fakeZwiftPower) redirect(from, to string) {
	u, err := url.Parse(from)
	if err != nil {
		panic(err)
	}
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.redirects[pageKey(u)] = to
}

func (f *fakeZwiftPower) count(path string) int {
	u, err := url.Parse(path)
	if err != nil {
		panic(err)
	}
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.hits[pageKey(u)]
}

func (f *fakeZwiftPower) submissions() []url.Values {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]url.Values(nil), f.submitted...)
}

func (f *fakeZwiftPower) handle(w http.ResponseWriter, r *http.Request) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	key := pageKey(r.URL)
	f.hits[key]++

	cookie, err := r.Cookie("zp_session")
	loggedIn := err == nil && cookie.Value == "ok"

	switch {
	case r.URL.Path == "/":
		if loggedIn {
			io.WriteString(w, frontPageLoggedIn)
			return
		}
		io.WriteString(w, frontPageLoggedOut)
		return
	case r.URL.Path == "/sso/auth":
		io.WriteString(w, ssoPage)
		return
	case r.URL.Path == "/sso/submit" && r.Method == http.MethodPost:
		r.ParseForm()
		f.submitted = append(f.submitted, r.PostForm)
		if !f.acceptLogin || r.PostForm.Get("username") != testUser || r.PostForm.Get("password") != testPassword {
			io.WriteString(w, frontPageLoggedOut)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "zp_session", Value: "ok", Path: "/"})
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if f.requireLogin && !loggedIn {
		if strings.HasSuffix(r.URL.Path, ".json") || r.URL.Path == "/api3.php" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		io.WriteString(w, frontPageLoggedOut)
		return
	}

	if to, ok := f.redirects[key]; ok {
		http.Redirect(w, r, to, http.StatusFound)
		return
	}
	body, ok := f.pages[key]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if strings.HasSuffix(r.URL.Path, ".json") || r.URL.Path == "/api3.php" {
		w.Header().Set("Content-Type", "application/json")
	}
	io.WriteString(w, body)
}

type scraperFixture struct {
	fake    *fakeZwiftPower
	scraper *Scraper
	tel     *telemetry.Recorder
	sleeper *chrono.RecordingSleeper
}

func newScraperFixture(t *testing.T, cache httpcache.Store) scraperFixture {
	fake := newFakeZwiftPower(t)
	tel := telemetry.NewRecorder()
	sleeper := &chrono.RecordingSleeper{}

	scraper, err := NewScraper(Options{
		Username:  testUser,
		Password:  testPassword,
		Sleep:     testSleep,
		BaseURL:   fake.server.URL,
		Cache:     cache,
		Transport: http.DefaultTransport,
		Telemetry: tel,
		Time:      chrono.NewManualTime(testNow),
		Sleeper:   sleeper,
	})
	require.NoError(t, err)

	return scraperFixture{
		fake:    fake,
		scraper: scraper,
		tel:     tel,
		sleeper: sleeper,
	}
}

func (f scraperFixture) warnings(report string) int {
	return len(f.tel.Reports(telemetry.SEVERITY_WARNING, report))
}
