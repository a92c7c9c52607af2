package zwiftpower

import (
	"context"
	"fmt"

	"bakpdlbot/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_race_name       = "race.name"
	report_race_categories = "race.categories"
	report_race_entrants   = "race.entrants"
)

const (
	raceURL           = "/events.php?zid=%d"
	raceSignupsURL    = "/cache3/results/%d_signups.json"
	raceResultsURL    = "/cache3/results/%d_view.json"
	raceUnfilteredURL = "/cache3/results/%d_zwift.json"
)

const selectorCategories = `.tab-content #t_results .btn-toolbar .btn-group:nth-child(2) button, ` +
	`.tab-content #t_signups .btn-toolbar .btn-group:nth-child(1) button`

// Race is a zwiftpower event.
type Race struct {
	entity

	page       memo[*goquery.Document]
	signups    memo[decoded[riderRows]]
	results    memo[decoded[riderRows]]
	unfiltered memo[decoded[riderRows]]
}

func newRace(id int, scraper *Scraper) *Race {
	return &Race{entity: newEntity(id, scraper)}
}

func (r *Race) URL() string {
	return r.scraper.URL(raceURL, r.ID)
}

func (r *Race) document(ctx context.Context) (*goquery.Document, error) {
	return r.entity.document(ctx, &r.page, r.URL())
}

// Name is the title of the event.
func (r *Race) Name(ctx context.Context) (*string, error) {
	doc, err := r.document(ctx)
	if err != nil {
		return nil, err
	}
	name, ok := htmlutil.FirstText(doc.Selection, "h3")
	if !ok {
		r.warn(report_race_name, "no h3")
		return nil, nil
	}
	return &name, nil
}

// Categories are the pen labels of the event ("A", "B", …).
func (r *Race) Categories(ctx context.Context) ([]string, error) {
	doc, err := r.document(ctx)
	if err != nil {
		return nil, err
	}
	buttons := doc.Find(selectorCategories)
	if buttons.Length() == 0 {
		r.warn(report_race_categories, "no category buttons")
		return nil, nil
	}
	categories := []string{}
	// the first button is "All"
	buttons.Slice(1, buttons.Length()).Each(func(_ int, btn *goquery.Selection) {
		categories = append(categories, htmlutil.CleanText(btn.Nodes[0]))
	})
	return categories, nil
}

func (r *Race) entrants(ctx context.Context, m *memo[decoded[riderRows]], path string) ([]Entrant, error) {
	doc, err := fetchJSON(ctx, r.entity, m, r.scraper.URL(path, r.ID))
	if err != nil {
		return nil, err
	}
	if doc.err != nil {
		r.warn(report_race_entrants, doc.err)
		return nil, nil
	}
	if doc.value.Data == nil {
		r.warn(report_race_entrants, errNoData)
		return nil, nil
	}
	entrants := make([]Entrant, len(doc.value.Data))
	for i, row := range doc.value.Data {
		entrants[i] = Entrant{Rider: newRider(row, r.scraper)}
	}
	return entrants, nil
}

// Signups lists the riders signed up for the event.
func (r *Race) Signups(ctx context.Context) ([]Entrant, error) {
	return r.entrants(ctx, &r.signups, raceSignupsURL)
}

// Results lists the filtered results of the event.
func (r *Race) Results(ctx context.Context) ([]Entrant, error) {
	return r.entrants(ctx, &r.results, raceResultsURL)
}

// Unfiltered lists every finisher known to zwift, including riders zwiftpower filtered out.
func (r *Race) Unfiltered(ctx context.Context) ([]Entrant, error) {
	return r.entrants(ctx, &r.unfiltered, raceUnfilteredURL)
}

func (r *Race) String() string {
	return fmt.Sprintf("<Race id=%d>", r.ID)
}
