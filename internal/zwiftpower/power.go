package zwiftpower

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"runtime/debug"
	"sort"
	"strings"

	"bakpdlbot/lib/htmlutil"
	"bakpdlbot/lib/jsonutil"
	"bakpdlbot/lib/textutil"

	"github.com/titanous/json5"
)

// CriticalPower maps an effort window ("30days", "90days", …) to the best
// value for a duration in seconds.
type CriticalPower map[string]map[int]float64

// Durations returns the durations of a window in ascending order.
func (c CriticalPower) Durations(window string) []int {
	out := make([]int, 0, len(c[window]))
	for d := range c[window] {
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}

var errNoEfforts = errors.New(`document has no "efforts"`)

type criticalPowerPayload struct {
	Efforts jsonutil.Value `json:"efforts"`
}

type criticalPowerPoint struct {
	X jsonutil.Value `json:"x"`
	Y jsonutil.Value `json:"y"`
}

func (p *Profile) criticalPower(ctx context.Context, m *memo[decoded[criticalPowerPayload]], kind string) (CriticalPower, error) {
	doc, err := fetchJSON(ctx, p.entity, m, p.scraper.URL(cpURL, p.ID, kind))
	if err != nil {
		return nil, err
	}
	if doc.err != nil {
		p.warn(report_profile_cp, doc.err)
		return nil, nil
	}

	if doc.value.Efforts.IsNull() {
		p.warn(report_profile_cp, errNoEfforts)
		return nil, nil
	}
	// an empty result is sent as [] or {}, both mean there is no data
	efforts, ok := doc.value.Efforts.Map()
	if !ok || len(efforts) == 0 {
		return nil, nil
	}

	out := CriticalPower{}
	for window, raw := range efforts {
		var points []criticalPowerPoint
		err := raw.Decode(&points)
		if err != nil {
			p.warn(report_profile_cp, err)
			return nil, nil
		}
		curve := map[int]float64{}
		for _, point := range points {
			x, xok := point.X.Int()
			y, yok := point.Y.Float()
			if !xok || !yok {
				continue
			}
			curve[x] = y
		}
		out[window] = curve
	}
	return out, nil
}

// CPWatts is the critical power curve in watts, nil if the rider has no efforts.
func (p *Profile) CPWatts(ctx context.Context) (CriticalPower, error) {
	return p.criticalPower(ctx, &p.cpWatts, cpTypeWatts)
}

// CPWkg is the critical power curve in watts per kilogram, nil if the rider has no efforts.
func (p *Profile) CPWkg(ctx context.Context) (CriticalPower, error) {
	return p.criticalPower(ctx, &p.cpWkg, cpTypeWkg)
}

// PowerBuckets are the durations in seconds of the profile page's power spider.
var PowerBuckets = []int{15, 60, 300, 1200}

// PowerPoint is one value of the power spider, any part may be unknown.
type PowerPoint struct {
	// Top is 1, 2 or 3 when the value is in the top 1/5/10% (the spider's colour).
	Top   *int
	Value *string
	Pct   *float64
}

// PowerProfile is the 15s/1m/5m/20m power of the profile page by bucket.
type PowerProfile struct {
	Wkg  map[int]PowerPoint
	Watt map[int]PowerPoint
}

func emptyPowerProfile() PowerProfile {
	out := PowerProfile{Wkg: map[int]PowerPoint{}, Watt: map[int]PowerPoint{}}
	for _, bucket := range PowerBuckets {
		out.Wkg[bucket] = PowerPoint{}
		out.Watt[bucket] = PowerPoint{}
	}
	return out
}

var spiderColors = map[string]int{
	"#f26f33": 1,
	"#0a7dce": 2,
	"#7CB5EC": 3,
}

var spiderRegex = regexp.MustCompile(`{ mean:[^}]* }`)

var errNoSpider = errors.New("no load_profile_spider script")

var errSpiderLiterals = fmt.Errorf("load_profile_spider has fewer than %d values", len(PowerBuckets)*2)

type spiderPoint struct {
	Color string   `json:"color"`
	Ours  string   `json:"ours"`
	Y     *float64 `json:"y"`
}

func decodeSpider(literal string) (PowerPoint, error) {
	var values spiderPoint
	err := json5.Unmarshal([]byte(literal), &values)
	if err != nil {
		return PowerPoint{}, err
	}
	var point PowerPoint
	if top, ok := spiderColors[values.Color]; ok {
		point.Top = &top
	}
	if value := textutil.FirstWord(values.Ours); value != "" {
		point.Value = &value
	}
	point.Pct = values.Y
	return point, nil
}

// PowerProfile decodes the power spider embedded in the profile page. When it cannot be
// decoded the failure is reported and a profile with every value unknown is returned.
func (p *Profile) PowerProfile(ctx context.Context) (PowerProfile, error) {
	doc, err := p.document(ctx)
	if err != nil {
		return PowerProfile{}, err
	}

	var script string
	found := false
	for _, node := range doc.Find("script").Nodes {
		text := htmlutil.GetText(node)
		if strings.Contains(text, "function load_profile_spider()") {
			script = text
			found = true
			break
		}
	}
	if !found {
		p.tel.ReportBroken(report_profile_power, p.ID, errNoSpider, string(debug.Stack()))
		return emptyPowerProfile(), nil
	}

	literals := spiderRegex.FindAllString(script, len(PowerBuckets)*2)
	if len(literals) < len(PowerBuckets)*2 {
		p.tel.ReportBroken(report_profile_power, p.ID, errSpiderLiterals, string(debug.Stack()))
		return emptyPowerProfile(), nil
	}

	out := emptyPowerProfile()
	for i, literal := range literals {
		point, err := decodeSpider(literal)
		if err != nil {
			p.tel.ReportBroken(report_profile_power, p.ID, err, string(debug.Stack()))
			return emptyPowerProfile(), nil
		}
		bucket := PowerBuckets[i%len(PowerBuckets)]
		if i < len(PowerBuckets) {
			out.Wkg[bucket] = point
		} else {
			out.Watt[bucket] = point
		}
	}
	return out, nil
}
