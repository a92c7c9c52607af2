package zwiftpower

import (
	"context"

	"bakpdlbot/internal/components/telemetry"

	"github.com/PuerkitoBio/goquery"
)

// entity is the part every handle shares: its id and the session it fetches through.
type entity struct {
	ID      int
	scraper *Scraper
	tel     telemetry.API
}

func newEntity(id int, scraper *Scraper) entity {
	return entity{ID: id, scraper: scraper, tel: scraper.tel}
}

// warn reports a soft failure, the accessor that calls it returns nil.
func (e entity) warn(report string, detail any) {
	e.tel.ReportWarning(report, e.ID, detail)
}

func (e entity) document(ctx context.Context, m *memo[*goquery.Document], url string) (*goquery.Document, error) {
	return m.get(func() (*goquery.Document, error) {
		res, err := e.scraper.Get(ctx, url)
		if err != nil {
			return nil, err
		}
		return res.Document()
	})
}

// decoded is a fetched json document, err is set when it could not be decoded.
type decoded[T any] struct {
	value T
	err   error
}

func fetchJSON[T any](ctx context.Context, e entity, m *memo[decoded[T]], url string) (decoded[T], error) {
	return m.get(func() (decoded[T], error) {
		res, err := e.scraper.Get(ctx, url)
		if err != nil {
			return decoded[T]{}, err
		}
		var out decoded[T]
		out.err = res.JSON(&out.value)
		return out, nil
	})
}
