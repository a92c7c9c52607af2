package httpcache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"bakpdlbot/internal/components/assert"
	"bakpdlbot/internal/components/chrono"
	"bakpdlbot/internal/components/telemetry"
)

// HeaderFromCache is set on responses served from the store.
const HeaderFromCache = "X-From-Cache"

const (
	report_transport_get = "transport.get"
	report_transport_set = "transport.set"
)

// FromCache reports whether a response was served from the store.
func FromCache(res *http.Response) bool {
	return res != nil && res.Header.Get(HeaderFromCache) == "1"
}

type TransportOptions struct {
	Store  Store
	Expiry time.Duration
	Time   chrono.TimeAPI
	// ShouldStore decides if a fetched 2xx response may be stored, nil stores all of them.
	ShouldStore func(res *http.Response, body []byte) bool
	Telemetry   telemetry.API
}

// Transport is a RoundTripper that serves GET requests from a Store while they are fresh.
//
// Only 2xx responses are stored; Set-Cookie headers are never stored so a replayed
// response cannot touch the cookie jar.
type Transport struct {
	next        http.RoundTripper
	store       Store
	expiry      time.Duration
	time        chrono.TimeAPI
	shouldStore func(res *http.Response, body []byte) bool
	tel         telemetry.API
}

func NewTransport(next http.RoundTripper, opts TransportOptions) *Transport {
	assert.NotNil(opts.Store)
	assert.NotNil(opts.Time)
	assert.NotNil(opts.Telemetry)

	if next == nil {
		next = http.DefaultTransport
	}
	expiry := opts.Expiry
	if expiry <= 0 {
		expiry = DefaultExpiry
	}

	return &Transport{
		next:        next,
		store:       opts.Store,
		expiry:      expiry,
		time:        opts.Time,
		shouldStore: opts.ShouldStore,
		tel:         telemetry.NewScopedAPI("httpcache", opts.Telemetry),
	}
}

// Store returns the store the transport reads from.
func (t *Transport) Store() Store {
	return t.store
}

// Invalidate removes the stored response of a GET to `rawURL`.
func (t *Transport) Invalidate(ctx context.Context, rawURL string) error {
	return t.store.Delete(ctx, Key(http.MethodGet, rawURL))
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if req.Method != http.MethodGet || Disabled(ctx) {
		return t.forward(req)
	}

	key := Key(req.Method, req.URL.String())
	entry, found, err := t.store.Get(ctx, key)
	if err != nil {
		t.tel.ReportWarning(report_transport_get, fmt.Errorf("read: %w", err), key)
	} else if found {
		t.tel.ReportDebug("cache hit", key)
		return entry.response(req), nil
	}

	res, err := t.forward(req)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return res, nil
	}

	body, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		return nil, err
	}
	res.Body = io.NopCloser(bytes.NewReader(body))

	if t.shouldStore != nil && !t.shouldStore(res, body) {
		return res, nil
	}

	now := t.time.Now()
	header := res.Header.Clone()
	header.Del("Set-Cookie")
	header.Del("Content-Length")
	err = t.store.Set(ctx, Entry{
		Key:        key,
		URL:        req.URL.String(),
		StatusCode: res.StatusCode,
		Header:     header,
		Body:       body,
		StoredAt:   now,
		ExpiresAt:  now.Add(t.expiry),
	})
	if err != nil {
		t.tel.ReportWarning(report_transport_set, fmt.Errorf("write: %w", err), key)
	}
	return res, nil
}

func (t *Transport) forward(req *http.Request) (*http.Response, error) {
	markNetwork(req.Context())
	return t.next.RoundTrip(req)
}

func (e Entry) response(req *http.Request) *http.Response {
	header := e.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set(HeaderFromCache, "1")

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode)),
		StatusCode:    e.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}
