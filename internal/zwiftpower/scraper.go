// Package zwiftpower scrapes zwiftpower.com through a logged in session.
//
// Entity handles (Profile, Team, Race) are lazy: nothing is fetched until an accessor
// needs it, and every backing document is fetched at most once per handle.
package zwiftpower

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"bakpdlbot/internal/components/assert"
	"bakpdlbot/internal/components/chrono"
	"bakpdlbot/internal/components/telemetry"
	"bakpdlbot/internal/httpcache"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultBaseURL = "https://zwiftpower.com"
	DefaultSleep   = time.Second * 5
)

const (
	report_scraper_get   = "scraper.get"
	report_scraper_login = "scraper.login"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

var tracer = otel.Tracer("bakpdlbot/zwiftpower")
var meter = otel.Meter("bakpdlbot/zwiftpower")
var cacheHitCounter, _ = meter.Int64Counter("zwiftpower.cache_hit")
var cacheMissCounter, _ = meter.Int64Counter("zwiftpower.cache_miss")
var loginCounter, _ = meter.Int64Counter("zwiftpower.login")

type Options struct {
	Username string
	Password string
	// Sleep is the delay after every response that was not served from the cache,
	// DefaultSleep if zero.
	Sleep time.Duration
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
	// Cache is optional, responses are only cached if it is set.
	Cache       httpcache.Store
	CacheExpiry time.Duration
	// Transport is the base round tripper, defaults to the resty transport behind the
	// cloudflare bypass.
	Transport http.RoundTripper

	Telemetry telemetry.API
	// Time and Sleeper default to the standard implementations.
	Time    chrono.TimeAPI
	Sleeper chrono.Sleeper
}

// Scraper is an authenticated, rate limited session against zwiftpower.
type Scraper struct {
	baseURL  *url.URL
	http     *resty.Client
	cache    *httpcache.Transport
	username string
	password string
	sleep    time.Duration

	time    chrono.TimeAPI
	sleeper chrono.Sleeper
	tel     telemetry.API
}

func NewScraper(opts Options) (*Scraper, error) {
	assert.NotNil(opts.Telemetry)

	if opts.Username == "" {
		return nil, &ConfigurationError{Field: "username"}
	}
	if opts.Password == "" {
		return nil, &ConfigurationError{Field: "password"}
	}

	tel := telemetry.NewScopedAPI("zwiftpower", opts.Telemetry)
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsedBaseURL, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, err
	}
	sleep := opts.Sleep
	if sleep == 0 {
		sleep = DefaultSleep
	}
	clock := opts.Time
	if clock == nil {
		clock = chrono.NewStandardTime()
	}
	sleeper := opts.Sleeper
	if sleeper == nil {
		sleeper = chrono.NewStandardSleeper()
	}

	httpClient := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.SetHeader("user-agent", userAgent)
	// login hops through the zwift sso domain
	httpClient.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	httpClient.SetTimeout(time.Second * 30)

	transport := opts.Transport
	if transport == nil {
		transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	var cache *httpcache.Transport
	if opts.Cache != nil {
		cache = httpcache.NewTransport(transport, httpcache.TransportOptions{
			Store:  opts.Cache,
			Expiry: opts.CacheExpiry,
			Time:   clock,
			// a logged out page must never be replayed
			ShouldStore: func(_ *http.Response, body []byte) bool {
				return (&Response{Body: body}).LoggedIn()
			},
			Telemetry: opts.Telemetry,
		})
		transport = cache
	}
	httpClient.SetTransport(transport)

	telemetry.InstrumentResty(httpClient, "zwiftpower", tel)

	return &Scraper{
		baseURL:  parsedBaseURL,
		http:     httpClient,
		cache:    cache,
		username: opts.Username,
		password: opts.Password,
		sleep:    sleep,
		time:     clock,
		sleeper:  sleeper,
		tel:      tel,
	}, nil
}

// URL returns an absolute url for a path on zwiftpower.
func (s *Scraper) URL(path string, args ...any) string {
	return s.baseURL.String() + fmt.Sprintf(path, args...)
}

func (s *Scraper) request(ctx context.Context, rawURL string) (*Response, error) {
	ctx, hops := httpcache.TrackHops(ctx)
	res, err := s.http.R().
		SetContext(ctx).
		Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("zwiftpower: GET %s: %w", rawURL, err)
	}
	out := newResponse(res)
	// the final hop may come from the cache after a redirect that did not
	if hops.Network() {
		out.FromCache = false
	}
	return out, nil
}

// Get fetches a page through the cache. A logged out response triggers a single login
// and retry, a cache miss is followed by the configured delay.
func (s *Scraper) Get(ctx context.Context, rawURL string) (*Response, error) {
	ctx, span := tracer.Start(ctx, "Scraper.Get", trace.WithAttributes(
		attribute.String("url", rawURL),
	))
	defer span.End()

	res, err := s.get(ctx, rawURL, false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get failed")
		return nil, err
	}
	span.SetAttributes(attribute.Bool("from_cache", res.FromCache))
	return res, nil
}

func (s *Scraper) get(ctx context.Context, rawURL string, isLogin bool) (*Response, error) {
	s.tel.ReportDebug(report_scraper_get, rawURL)

	res, err := s.request(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if !isLogin && (res.StatusCode == http.StatusForbidden || !res.LoggedIn()) {
		s.tel.ReportWarning(report_scraper_get, "logged out, logging in", rawURL)
		if s.cache != nil {
			err = s.cache.Invalidate(ctx, rawURL)
			if err != nil {
				s.tel.ReportWarning(report_scraper_get, fmt.Errorf("invalidate: %w", err), rawURL)
			}
		}

		err = s.Login(ctx)
		if err != nil {
			return nil, err
		}

		res, err = s.request(ctx, rawURL)
		if err != nil {
			return nil, err
		}
	}

	if !res.IsSuccess() {
		return nil, &HttpError{Response: res}
	}

	if res.FromCache {
		cacheHitCounter.Add(ctx, 1)
		s.tel.ReportDebug("cache hit", rawURL)
		return res, nil
	}

	cacheMissCounter.Add(ctx, 1)
	s.tel.ReportDebug("cache miss", rawURL)
	err = s.sleeper.Sleep(ctx, s.sleep)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ClearCache removes every cached response.
func (s *Scraper) ClearCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Store().Clear(ctx)
}

// Login performs the zwift sso handshake, it is called by Get whenever the session
// turns out to be logged out.
func (s *Scraper) Login(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Scraper.Login")
	defer span.End()

	err := s.login(httpcache.WithoutCache(ctx))
	if err != nil {
		s.tel.ReportBroken(report_scraper_login, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		return err
	}
	s.tel.ReportDebug("login successful")
	return nil
}

func (s *Scraper) login(ctx context.Context) error {
	loginCounter.Add(ctx, 1)
	s.tel.ReportDebug(report_scraper_login, "loading front page")

	front, err := s.get(ctx, s.baseURL.String()+"/", true)
	if err != nil {
		return &AuthenticationError{Reason: "load front page", Err: err}
	}
	frontDoc, err := front.Document()
	if err != nil {
		return &AuthenticationError{Reason: "parse front page", Err: err}
	}
	href, ok := frontDoc.Find(loginMarker).First().Find("a").First().Attr("href")
	if !ok {
		return &AuthenticationError{Reason: "front page has no sso link in the login form"}
	}
	ssoURL, err := front.Resolve(strings.TrimSpace(href))
	if err != nil {
		return &AuthenticationError{Reason: "parse sso link", Err: err}
	}

	s.tel.ReportDebug(report_scraper_login, "loading zwift login", ssoURL.String())
	sso, err := s.get(ctx, ssoURL.String(), true)
	if err != nil {
		return &AuthenticationError{Reason: "load sso page", Err: err}
	}
	ssoDoc, err := sso.Document()
	if err != nil {
		return &AuthenticationError{Reason: "parse sso page", Err: err}
	}
	form := ssoDoc.Find("form#form").First()
	if form.Length() == 0 {
		return &AuthenticationError{Reason: "sso page has no login form"}
	}

	data := url.Values{}
	form.Find("input").Each(func(_ int, input *goquery.Selection) {
		name, ok := input.Attr("name")
		if !ok || name == "" {
			return
		}
		// inputs without a value are not submitted
		value, ok := input.Attr("value")
		if !ok {
			return
		}
		data.Set(name, value)
	})
	data.Del("rememberMe")
	data.Set("username", s.username)
	data.Set("password", s.password)

	action, err := sso.Resolve(strings.TrimSpace(form.AttrOr("action", "")))
	if err != nil {
		return &AuthenticationError{Reason: "parse form action", Err: err}
	}

	s.tel.ReportDebug(report_scraper_login, "submitting credentials", action.String())
	res, err := s.http.R().
		SetContext(ctx).
		SetFormDataFromValues(data).
		Post(action.String())
	if err != nil {
		return &AuthenticationError{Reason: "submit credentials", Err: err}
	}
	signon := newResponse(res)
	if !signon.IsSuccess() {
		return &AuthenticationError{Reason: "submit credentials", Err: &HttpError{Response: signon}}
	}
	if !signon.LoggedIn() {
		return &AuthenticationError{Reason: "still logged out after submitting credentials"}
	}
	return nil
}

func (s *Scraper) Profile(id int) *Profile {
	return newProfile(id, s)
}

func (s *Scraper) Team(id int) *Team {
	return newTeam(id, s)
}

func (s *Scraper) Race(id int) *Race {
	return newRace(id, s)
}
