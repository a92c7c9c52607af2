package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
	report_resty_exchange = "resty.exchange"
)

// headerFromCache mirrors httpcache.HeaderFromCache.
const headerFromCache = "X-From-Cache"

var restyMeter = otel.Meter("bakpdlbot/resty")
var requestCounter, _ = restyMeter.Int64Counter(
	"http_client_requests",
	metric.WithDescription("Requests made by a scraper client, by host, status and whether the cache answered."),
)
var requestDuration, _ = restyMeter.Float64Histogram(
	"http_client_duration_ms",
	metric.WithUnit("ms"),
)

// redactedFields are form fields whose values never end up in a dump.
var redactedFields = []string{"password", "username", "credentialId"}

type instrumentResty struct {
	client string
	tel    API
	nextID *atomic.Uint64
}

// InstrumentResty reports every exchange made by `client` at debug level and
// counts it under the given client name. Transport errors are reported as
// broken, non-2xx exchanges are dumped with credentials redacted.
func InstrumentResty(httpClient *resty.Client, client string, tel API) {
	i := instrumentResty{client: client, tel: tel, nextID: &atomic.Uint64{}}
	httpClient.OnBeforeRequest(i.onBeforeRequest)
	httpClient.OnAfterResponse(i.onAfterResponse)
	httpClient.OnError(i.onError)
}

type exchangeKeyType int

var exchangeKey exchangeKeyType

type exchange struct {
	id uint64
	// monotonic, so it is fine to not use chrono here.
	start time.Time
}

func (i instrumentResty) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	ex := exchange{id: i.nextID.Add(1), start: time.Now()}
	i.tel.ReportDebug(report_resty_request, ex.id, req.Method, req.URL)
	req.SetContext(context.WithValue(req.Context(), exchangeKey, ex))
	return nil
}

func (i instrumentResty) record(ctx context.Context, ex exchange, host, status string, cached bool) time.Duration {
	elapsed := time.Since(ex.start)
	attrs := metric.WithAttributes(
		attribute.String("client", i.client),
		attribute.String("host", host),
		attribute.String("status", status),
		attribute.Bool("cached", cached),
	)
	requestCounter.Add(ctx, 1, attrs)
	requestDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	return elapsed
}

func (i instrumentResty) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	ex, ok := ctx.Value(exchangeKey).(exchange)
	if !ok {
		return nil
	}

	cached := res.Header().Get(headerFromCache) == "1"
	elapsed := i.record(ctx, ex, hostOf(res.Request.URL), fmt.Sprint(res.StatusCode()), cached)
	i.tel.ReportDebug(report_resty_response, ex.id, elapsed.String(), res.Status(), "cached", cached)

	if !res.IsSuccess() && res.Request.RawRequest != nil {
		i.tel.ReportDebug(report_resty_exchange, ex.id, formatExchange(res))
	}
	return nil
}

func (i instrumentResty) onError(req *resty.Request, err error) {
	ctx := req.Context()
	var elapsed time.Duration
	if ex, ok := ctx.Value(exchangeKey).(exchange); ok {
		elapsed = i.record(ctx, ex, hostOf(req.URL), "error", false)
	}
	i.tel.ReportBroken(report_resty_response, err, req.Method, req.URL, elapsed)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func formatHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out strings.Builder
	for _, k := range keys {
		for _, v := range headers[k] {
			if k == "Cookie" || k == "Set-Cookie" {
				v = "<redacted>"
			}
			fmt.Fprintf(&out, "%s: %s\n", k, v)
		}
	}
	return strings.TrimSuffix(out.String(), "\n")
}

// redactForm replaces credential values of an urlencoded body, other bodies
// are returned as is.
func redactForm(body string) string {
	values, err := url.ParseQuery(body)
	if err != nil || len(values) == 0 {
		return body
	}
	changed := false
	for _, field := range redactedFields {
		if values.Has(field) {
			values.Set(field, "<redacted>")
			changed = true
		}
	}
	if !changed {
		return body
	}
	return values.Encode()
}

func formatRequestBody(req *http.Request) string {
	if req.GetBody == nil {
		return "<no body>"
	}
	body, err := req.GetBody()
	if err != nil || body == nil {
		return "<no body>"
	}
	defer body.Close()
	raw, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("<unreadable body: %s>", err)
	}
	return redactForm(string(raw))
}

func formatExchange(res *resty.Response) string {
	responseURL := res.Request.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		responseURL = res.RawResponse.Request.URL.String()
	}

	var out strings.Builder
	fmt.Fprintf(&out, "> %s %s\n", res.Request.Method, res.Request.URL)
	fmt.Fprintf(&out, "%s\n\n%s\n\n", formatHeaders(res.Request.RawRequest.Header), formatRequestBody(res.Request.RawRequest))
	fmt.Fprintf(&out, "< %d %s\n", res.StatusCode(), responseURL)
	fmt.Fprintf(&out, "%s\n\n%s", formatHeaders(res.Header()), res.String())
	return out.String()
}
