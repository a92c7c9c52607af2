package zwiftpower

import (
	"context"
	"fmt"
	"time"

	"bakpdlbot/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_team_name    = "team.name"
	report_team_tag     = "team.tag"
	report_team_info    = "team.info"
	report_team_colors  = "team.colors"
	report_team_members = "team.members"
)

const (
	teamURL       = "/team.php?id=%d"
	teamRidersURL = "/api3.php?do=team_riders&id=%d&_=%d"
)

// Team is a zwiftpower team.
type Team struct {
	entity

	page   memo[*goquery.Document]
	riders memo[decoded[*riderRows]]
}

func newTeam(id int, scraper *Scraper) *Team {
	return &Team{entity: newEntity(id, scraper)}
}

func (t *Team) URL() string {
	return t.scraper.URL(teamURL, t.ID)
}

// RidersURL busts any intermediate cache once an hour.
func (t *Team) RidersURL() string {
	bucket := t.scraper.time.Now().Truncate(time.Hour).Unix()
	return t.scraper.URL(teamRidersURL, t.ID, bucket)
}

func (t *Team) document(ctx context.Context) (*goquery.Document, error) {
	return t.entity.document(ctx, &t.page, t.URL())
}

func (t *Team) inputValue(ctx context.Context, report, id string) (*string, error) {
	doc, err := t.document(ctx)
	if err != nil {
		return nil, err
	}
	value, ok := doc.Find("input#" + id).First().Attr("value")
	if !ok {
		t.warn(report, fmt.Sprintf("input#%s has no value", id))
		return nil, nil
	}
	return &value, nil
}

func (t *Team) Name(ctx context.Context) (*string, error) {
	return t.inputValue(ctx, report_team_name, "team_name")
}

func (t *Team) Tag(ctx context.Context) (*string, error) {
	return t.inputValue(ctx, report_team_tag, "team_tag")
}

// Info is the free text description of the team.
func (t *Team) Info(ctx context.Context) (*string, error) {
	doc, err := t.document(ctx)
	if err != nil {
		return nil, err
	}
	text, ok := htmlutil.FirstText(doc.Selection, "textarea#team_info")
	if !ok {
		t.warn(report_team_info, "textarea#team_info not found")
		return nil, nil
	}
	return &text, nil
}

type TeamColors struct {
	Text       string
	Background string
	Border     string
}

// Colors are the css colours of the team's name tag.
func (t *Team) Colors(ctx context.Context) (*TeamColors, error) {
	doc, err := t.document(ctx)
	if err != nil {
		return nil, err
	}
	var colors TeamColors
	inputs := []struct {
		id  string
		dst *string
	}{
		{id: "team_color", dst: &colors.Text},
		{id: "team_bgcolor", dst: &colors.Background},
		{id: "team_bdcolor", dst: &colors.Border},
	}
	for _, input := range inputs {
		value, ok := doc.Find("input#" + input.id).First().Attr("value")
		if !ok {
			t.warn(report_team_colors, fmt.Sprintf("input#%s has no value", input.id))
			return nil, nil
		}
		*input.dst = value
	}
	return &colors, nil
}

func (t *Team) payload(ctx context.Context) (*riderRows, error) {
	doc, err := fetchJSON(ctx, t.entity, &t.riders, t.RidersURL())
	if err != nil {
		return nil, err
	}
	if doc.err != nil {
		t.warn(report_team_members, doc.err)
		return nil, nil
	}
	if doc.value == nil {
		t.warn(report_team_members, errNoData)
		return nil, nil
	}
	return doc.value, nil
}

// Members lists the riders on the team.
func (t *Team) Members(ctx context.Context) ([]Member, error) {
	rows, err := t.payload(ctx)
	if err != nil || rows == nil {
		return nil, err
	}
	if rows.Data == nil {
		t.warn(report_team_members, errNoData)
		return nil, nil
	}
	members := make([]Member, len(rows.Data))
	for i, row := range rows.Data {
		members[i] = Member{Rider: newRider(row, t.scraper)}
	}
	return members, nil
}

func (t *Team) String() string {
	return fmt.Sprintf("<Team id=%d>", t.ID)
}
