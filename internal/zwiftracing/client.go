// Package zwiftracing reads club rankings from the zwiftracing.app json api.
package zwiftracing

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"bakpdlbot/internal/components/assert"
	"bakpdlbot/internal/components/telemetry"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://www.zwiftracing.app"

const (
	report_client_riders = "client.riders"
)

// MaxPageSize is the largest page the api serves.
const MaxPageSize = 50

type Options struct {
	BaseURL string
	// Transport defaults to the resty transport.
	Transport http.RoundTripper
	Telemetry telemetry.API
	// RequestsPerSecond defaults to 2.
	RequestsPerSecond float64
}

type Client struct {
	http *resty.Client
	tel  telemetry.API
}

func NewClient(opts Options) *Client {
	assert.NotNil(opts.Telemetry)
	tel := telemetry.NewScopedAPI("zwiftracing", opts.Telemetry)

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	perSecond := opts.RequestsPerSecond
	if perSecond == 0 {
		perSecond = 2
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(baseURL)
	httpClient.SetTimeout(time.Second * 30)
	if opts.Transport != nil {
		httpClient.SetTransport(opts.Transport)
	}

	rateLimiter := rate.NewLimiter(rate.Limit(perSecond), 2)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})
	telemetry.InstrumentResty(httpClient, "zwiftracing", tel)

	return &Client{http: httpClient, tel: tel}
}

// Team is a zwiftracing club, it shares the id of the zwiftpower team.
type Team struct {
	ID     int
	client *Client
}

func (c *Client) Team(id int) Team {
	return Team{ID: id, client: c}
}

type ridersPage struct {
	Riders       []Rider `json:"riders"`
	TotalResults *int    `json:"totalResults"`
}

func (t Team) page(ctx context.Context, page, pageSize int) (ridersPage, error) {
	var out ridersPage
	res, err := t.client.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"club":          strconv.Itoa(t.ID),
			"page":          strconv.Itoa(page),
			"pageSize":      strconv.Itoa(pageSize),
			"sortBy":        "points",
			"sortDirection": "desc",
		}).
		SetResult(&out).
		Get("/api/riders")
	if err != nil {
		return ridersPage{}, err
	}
	if !res.IsSuccess() {
		return ridersPage{}, fmt.Errorf("zwiftracing riders: %s", res.Status())
	}
	return out, nil
}

// Riders lists the club's riders sorted by points, limit <= 0 means no limit.
func (t Team) Riders(ctx context.Context, limit int) ([]Rider, error) {
	pageSize := MaxPageSize
	if limit > 0 {
		pageSize = min(limit, MaxPageSize)
	}

	var riders []Rider
	for page := 0; ; page++ {
		result, err := t.page(ctx, page, pageSize)
		if err != nil {
			t.client.tel.ReportBroken(report_client_riders, err, t.ID, page)
			return nil, err
		}
		if len(result.Riders) == 0 {
			break
		}
		for _, rider := range result.Riders {
			if limit > 0 && len(riders) >= limit {
				break
			}
			riders = append(riders, rider)
		}

		next := 1 + (page+1)*pageSize
		if result.TotalResults != nil && next > *result.TotalResults {
			break
		}
		if limit > 0 && limit < next {
			break
		}
	}
	return riders, nil
}
