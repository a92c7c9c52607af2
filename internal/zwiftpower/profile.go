package zwiftpower

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"bakpdlbot/lib/htmlutil"
	"bakpdlbot/lib/jsonutil"
	"bakpdlbot/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_profile_name     = "profile.name"
	report_profile_category = "profile.category"
	report_profile_rank     = "profile.rank"
	report_profile_ftp      = "profile.ftp"
	report_profile_weight   = "profile.weight"
	report_profile_punch    = "profile.punch"
	report_profile_races    = "profile.races"
	report_profile_height   = "profile.height"
	report_profile_flag     = "profile.flag"
	report_profile_cp       = "profile.critical-power"
	report_profile_power    = "profile.power-profile"
)

const (
	profileURL  = "/profile.php?z=%d"
	racesURL    = "/cache3/profile/%d_all.json"
	cpURL       = "/api3.php?do=critical_power_profile&zwift_id=%d&zwift_event_id=&type=%s"
	cpTypeWatts = "watts"
	cpTypeWkg   = "wkg"
)

const (
	selectorName     = `div#zp_submenu a[href="#tab-results"]`
	selectorCategory = `table#profile_information span[title="Mixed 30 day category"]`
	// the html parser inserts the tbody the markup leaves out
	selectorRank  = `#profile_information tr:first-child > td > small > b:nth-child(2)`
	selectorPunch = `#table_scroll_overview > div.btn-toolbar > div.pull-right > div.progress > div.progress-bar > span`
)

var punchRegex = regexp.MustCompile(`Punch:\s*([0-9.]*)%`)

// Profile is a zwiftpower rider profile.
type Profile struct {
	entity

	page    memo[*goquery.Document]
	races   memo[decoded[riderRows]]
	cpWatts memo[decoded[criticalPowerPayload]]
	cpWkg   memo[decoded[criticalPowerPayload]]
}

func newProfile(id int, scraper *Scraper) *Profile {
	return &Profile{entity: newEntity(id, scraper)}
}

func (p *Profile) URL() string {
	return p.scraper.URL(profileURL, p.ID)
}

func (p *Profile) document(ctx context.Context) (*goquery.Document, error) {
	return p.entity.document(ctx, &p.page, p.URL())
}

func (p *Profile) text(ctx context.Context, report, selector string) (*string, error) {
	doc, err := p.document(ctx)
	if err != nil {
		return nil, err
	}
	text, ok := htmlutil.FirstText(doc.Selection, selector)
	if !ok {
		p.warn(report, fmt.Sprintf("no element matches %s", selector))
		return nil, nil
	}
	return &text, nil
}

// Name is the display name of the rider.
func (p *Profile) Name(ctx context.Context) (*string, error) {
	return p.text(ctx, report_profile_name, selectorName)
}

// Category is the mixed 30 day category.
func (p *Profile) Category(ctx context.Context) (*string, error) {
	return p.text(ctx, report_profile_category, selectorCategory)
}

// Rank is the zwiftpower ranking points position.
func (p *Profile) Rank(ctx context.Context) (*int, error) {
	doc, err := p.document(ctx)
	if err != nil {
		return nil, err
	}
	found := doc.Find(selectorRank).First()
	if found.Length() == 0 {
		p.warn(report_profile_rank, "rank element not found")
		return nil, nil
	}
	firstLine := strings.SplitN(htmlutil.GetText(found.Nodes[0]), "\n", 2)[0]
	rank, err := textutil.ParseGroupedInt(firstLine)
	if err != nil {
		p.warn(report_profile_rank, err)
		return nil, nil
	}
	return &rank, nil
}

// ftpCell returns the text of the cell next to the first "FTP" header.
func ftpCell(doc *goquery.Document) (string, bool) {
	var cell string
	found := false
	doc.Find("th").EachWithBreak(func(_ int, th *goquery.Selection) bool {
		if strings.TrimSpace(th.Text()) != "FTP" {
			return true
		}
		td := th.NextAllFiltered("td").First()
		if td.Length() > 0 {
			cell = strings.TrimSpace(td.Text())
			found = true
		}
		return false
	})
	return cell, found
}

// parseFTPCell splits "220w ~ 86kg" into its watts and kilograms.
func parseFTPCell(cell string) (watts *int, kg *float64) {
	wattPart, rest, hasW := strings.Cut(cell, "w")
	if hasW {
		w, err := textutil.ParseGroupedInt(wattPart)
		if err == nil {
			watts = &w
		}
	}
	_, kgPart, hasTilde := strings.Cut(rest, "~")
	if hasTilde {
		kgPart = strings.TrimSpace(strings.Replace(kgPart, "kg", "", 1))
		weight, err := strconv.ParseFloat(kgPart, 64)
		if err == nil {
			kg = &weight
		}
	}
	return watts, kg
}

// FTP is the functional threshold power shown on the profile in watts.
func (p *Profile) FTP(ctx context.Context) (*int, error) {
	doc, err := p.document(ctx)
	if err != nil {
		return nil, err
	}
	cell, ok := ftpCell(doc)
	if !ok {
		p.warn(report_profile_ftp, "could not find ftp")
		return nil, nil
	}
	watts, _ := parseFTPCell(cell)
	if watts == nil {
		p.warn(report_profile_ftp, fmt.Sprintf("unparsable ftp cell %q", cell))
		return nil, nil
	}
	return watts, nil
}

// Weight is the weight next to the FTP in kilograms, the weight of the latest race
// is used when the profile does not show one.
func (p *Profile) Weight(ctx context.Context) (*float64, error) {
	doc, err := p.document(ctx)
	if err != nil {
		return nil, err
	}
	if cell, ok := ftpCell(doc); ok {
		if _, kg := parseFTPCell(cell); kg != nil {
			return kg, nil
		}
	}

	race, reported, err := p.latestRace(ctx)
	if err != nil {
		return nil, err
	}
	if race == nil {
		if !reported {
			p.warn(report_profile_weight, "no ftp cell and no races")
		}
		return nil, nil
	}
	weight, ok := race.Field("weight").Float()
	if !ok || weight <= 0 {
		p.warn(report_profile_weight, "latest race has no weight")
		return nil, nil
	}
	return &weight, nil
}

// Punch is the punch percentage of the power profile overview.
func (p *Profile) Punch(ctx context.Context) (*float64, error) {
	text, err := p.text(ctx, report_profile_punch, selectorPunch)
	if err != nil || text == nil {
		return nil, err
	}
	groups := punchRegex.FindStringSubmatch(*text)
	if len(groups) < 2 {
		p.warn(report_profile_punch, fmt.Sprintf("no punch in %q", *text))
		return nil, nil
	}
	punch, err := strconv.ParseFloat(groups[1], 64)
	if err != nil {
		p.warn(report_profile_punch, err)
		return nil, nil
	}
	return &punch, nil
}

// ProfileRace is one entry of a profile's race history.
type ProfileRace struct {
	data map[string]jsonutil.Value
}

// NewProfileRace wraps a race history row.
func NewProfileRace(data map[string]jsonutil.Value) ProfileRace {
	return ProfileRace{data: data}
}

func (r ProfileRace) Field(name string) jsonutil.Value {
	return r.data[name]
}

func (r ProfileRace) Data() map[string]jsonutil.Value {
	return r.data
}

// EventID is the zwiftpower race id of the event.
func (r ProfileRace) EventID() int {
	id, _ := r.data["zid"].Int()
	return id
}

func (r ProfileRace) EventTitle() string {
	return r.data["event_title"].String()
}

func (r ProfileRace) EventDate() time.Time {
	ts, _ := r.data["event_date"].Float()
	return time.Unix(int64(ts), 0).UTC()
}

// Types is the raw event type flags, ex. "TYPE_RACE TYPE_TT".
func (r ProfileRace) Types() string {
	return r.data["f_t"].String()
}

// Races lists the race history of the rider, entries without a date are left out.
func (p *Profile) Races(ctx context.Context) ([]ProfileRace, error) {
	races, _, err := p.raceHistory(ctx)
	return races, err
}

// raceHistory is Races, reported is true when a soft failure was already reported
// so callers falling back on it do not report a second time.
func (p *Profile) raceHistory(ctx context.Context) (races []ProfileRace, reported bool, err error) {
	doc, err := fetchJSON(ctx, p.entity, &p.races, p.scraper.URL(racesURL, p.ID))
	if err != nil {
		return nil, false, err
	}
	if doc.err != nil {
		p.warn(report_profile_races, doc.err)
		return nil, true, nil
	}
	if doc.value.Data == nil {
		p.warn(report_profile_races, errNoData)
		return nil, true, nil
	}

	races = []ProfileRace{}
	for _, row := range doc.value.Data {
		if row["event_date"].String() == "" {
			continue
		}
		races = append(races, NewProfileRace(row))
	}
	return races, false, nil
}

func (p *Profile) latestRace(ctx context.Context) (race *ProfileRace, reported bool, err error) {
	races, reported, err := p.raceHistory(ctx)
	if err != nil || len(races) == 0 {
		return nil, reported, err
	}
	sort.SliceStable(races, func(i, j int) bool {
		a, _ := races[i].Field("event_date").Float()
		b, _ := races[j].Field("event_date").Float()
		return a > b
	})
	return &races[0], false, nil
}

// LatestRace is the most recent race of the rider, nil if there is none.
func (p *Profile) LatestRace(ctx context.Context) (*ProfileRace, error) {
	race, _, err := p.latestRace(ctx)
	return race, err
}

// Height is the height in cm recorded on the latest race.
func (p *Profile) Height(ctx context.Context) (*int, error) {
	race, reported, err := p.latestRace(ctx)
	if err != nil {
		return nil, err
	}
	if race == nil {
		if !reported {
			p.warn(report_profile_height, "no races")
		}
		return nil, nil
	}
	height, ok := race.Field("height").Int()
	if !ok {
		p.warn(report_profile_height, "latest race has no height")
		return nil, nil
	}
	if height <= 0 {
		return nil, nil
	}
	return &height, nil
}

// Flag is the country code recorded on the latest race.
func (p *Profile) Flag(ctx context.Context) (*string, error) {
	race, reported, err := p.latestRace(ctx)
	if err != nil {
		return nil, err
	}
	if race == nil {
		if !reported {
			p.warn(report_profile_flag, "no races")
		}
		return nil, nil
	}
	flag := race.Field("flag").String()
	if flag == "" {
		p.warn(report_profile_flag, "latest race has no flag")
		return nil, nil
	}
	return &flag, nil
}

func (p *Profile) String() string {
	return fmt.Sprintf("<Profile id=%d>", p.ID)
}
