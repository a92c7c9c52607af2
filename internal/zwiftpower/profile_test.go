package zwiftpower

import (
	"context"
	"strings"
	"testing"

	"bakpdlbot/internal/components/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const profilePage = `<html><head>
<script>var unrelated = 1;</script>
<script>
function load_profile_spider() {
	var wkg = [{ mean: 9.1, y: 91.5, ours: '12.1 w/kg', color: '#f26f33' }, { mean: 7.0, y: 72, ours: '8.4 w/kg', color: '#0a7dce' }, { mean: 4.1, y: 55.5, ours: '5.3 w/kg', color: '#7CB5EC' }, { mean: 3.5, y: 40, ours: '4.1 w/kg', color: '#cccccc' }];
	var watt = [{ mean: 800, y: 90, ours: '1040 watts', color: '#f26f33' }, { mean: 600, y: 70, ours: '722 watts', color: '#cccccc' }, { mean: 380, y: 60, ours: '455 watts', color: '#cccccc' }, { mean: 290, y: 45, ours: '352 watts', color: '#0a7dce' }];
}
</script>
</head><body>
<div id="zp_submenu"><a href="#tab-results">  Jan   Jansen [BAKPDL] </a></div>
<table id="profile_information">
	<tr><td><small>Ranking <b>Europe</b> <b>1,234
	</b></small></td></tr>
	<tr><th>Category</th><td><span title="Mixed 30 day category">B</span></td></tr>
	<tr><th> FTP </th><td>220w ~ 86kg</td></tr>
</table>
<div id="table_scroll_overview"><div class="btn-toolbar"><div class="pull-right"><div class="progress"><div class="progress-bar"><span>Punch: 12.5%</span></div></div></div></div></div>
</body></html>`

const profileRaces = `{"data": [
	{"zid": 100, "event_date": 1700000000, "event_title": "Tour", "f_t": "TYPE_RIDE", "weight": ["70.5", 0], "height": [180, 0], "flag": "nl"},
	{"zid": 200, "event_date": 1710000000, "event_title": "Race", "f_t": "TYPE_RACE", "weight": ["71.0", 0], "height": [181, 0], "flag": "be"},
	{"zid": 300, "event_date": "", "event_title": "Broken", "weight": ["99.0", 0], "height": [100, 0], "flag": "de"}
]}`

func TestProfileFields(t *testing.T) {
	f := newScraperFixture(t, nil)
	f.fake.serve("/profile.php?z=42", profilePage)
	ctx := context.Background()
	profile := f.scraper.Profile(42)

	for i := 0; i < 2; i++ {
		name, err := profile.Name(ctx)
		require.NoError(t, err)
		require.Equal(t, "Jan Jansen [BAKPDL]", *name)

		category, err := profile.Category(ctx)
		require.NoError(t, err)
		require.Equal(t, "B", *category)

		rank, err := profile.Rank(ctx)
		require.NoError(t, err)
		require.Equal(t, 1234, *rank)

		ftp, err := profile.FTP(ctx)
		require.NoError(t, err)
		require.Equal(t, 220, *ftp)

		weight, err := profile.Weight(ctx)
		require.NoError(t, err)
		require.Equal(t, 86.0, *weight)

		punch, err := profile.Punch(ctx)
		require.NoError(t, err)
		require.Equal(t, 12.5, *punch)
	}

	require.Equal(t, 1, f.fake.count("/profile.php?z=42"), "the profile page must be fetched once")
	require.Zero(t, f.fake.count("/cache3/profile/42_all.json"), "weight must not fall back when the ftp cell has it")
	require.Empty(t, f.tel.Reports(telemetry.SEVERITY_WARNING, ""))
}

func TestProfileMissingFieldsWarnOncePerAccess(t *testing.T) {
	f := newScraperFixture(t, nil)
	f.fake.serve("/profile.php?z=42", `<html><body><p>nothing to see</p></body></html>`)
	f.fake.serve("/cache3/profile/42_all.json", `{"data": []}`)
	ctx := context.Background()
	profile := f.scraper.Profile(42)

	for i := 1; i <= 2; i++ {
		ftp, err := profile.FTP(ctx)
		require.NoError(t, err)
		require.Nil(t, ftp)
		require.Equal(t, i, f.warnings(report_profile_ftp))

		name, err := profile.Name(ctx)
		require.NoError(t, err)
		require.Nil(t, name)
		require.Equal(t, i, f.warnings(report_profile_name))

		rank, err := profile.Rank(ctx)
		require.NoError(t, err)
		require.Nil(t, rank)
		require.Equal(t, i, f.warnings(report_profile_rank))

		punch, err := profile.Punch(ctx)
		require.NoError(t, err)
		require.Nil(t, punch)
		require.Equal(t, i, f.warnings(report_profile_punch))

		weight, err := profile.Weight(ctx)
		require.NoError(t, err)
		require.Nil(t, weight)
		require.Equal(t, i, f.warnings(report_profile_weight))
	}
	require.Equal(t, 1, f.fake.count("/profile.php?z=42"))
	require.Equal(t, 1, f.fake.count("/cache3/profile/42_all.json"))
}

func TestProfileRaces(t *testing.T) {
	f := newScraperFixture(t, nil)
	f.fake.serve("/profile.php?z=42", `<html><body><table><tr><th>FTP</th><td>250w</td></tr></table></body></html>`)
	f.fake.serve("/cache3/profile/42_all.json", profileRaces)
	ctx := context.Background()
	profile := f.scraper.Profile(42)

	races, err := profile.Races(ctx)
	require.NoError(t, err)
	require.Len(t, races, 2, "races without a date are dropped")

	latest, err := profile.LatestRace(ctx)
	require.NoError(t, err)
	require.Equal(t, 200, latest.EventID())
	require.Equal(t, "TYPE_RACE", latest.Types())
	require.Equal(t, int64(1710000000), latest.EventDate().Unix())

	ftp, err := profile.FTP(ctx)
	require.NoError(t, err)
	require.Equal(t, 250, *ftp)

	weight, err := profile.Weight(ctx)
	require.NoError(t, err)
	require.Equal(t, 71.0, *weight, "weight falls back to the latest race")

	height, err := profile.Height(ctx)
	require.NoError(t, err)
	require.Equal(t, 181, *height)

	flag, err := profile.Flag(ctx)
	require.NoError(t, err)
	require.Equal(t, "be", *flag)

	require.Equal(t, 1, f.fake.count("/cache3/profile/42_all.json"))
}

func TestParseFTPCell(t *testing.T) {
	testCases := []struct {
		cell  string
		watts *int
		kg    *float64
	}{
		{cell: "220w ~ 86kg", watts: ptr(220), kg: ptr(86.0)},
		{cell: "1,050w ~ 102.5kg", watts: ptr(1050), kg: ptr(102.5)},
		{cell: "250w", watts: ptr(250)},
		{cell: "hidden"},
	}

	for _, test := range testCases {
		t.Run(test.cell, func(t *testing.T) {
			watts, kg := parseFTPCell(test.cell)
			require.Equal(t, test.watts, watts)
			require.Equal(t, test.kg, kg)
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}

func TestCriticalPower(t *testing.T) {
	f := newScraperFixture(t, nil)
	f.fake.serve("/api3.php?do=critical_power_profile&zwift_id=1&zwift_event_id=&type=watts", `{"efforts": {
		"90days": [{"x": 5, "y": 900}, {"x": 60, "y": "512"}],
		"30days": [{"x": 5, "y": 850}]
	}}`)
	f.fake.serve("/api3.php?do=critical_power_profile&zwift_id=1&zwift_event_id=&type=wkg", `{"efforts": []}`)
	f.fake.serve("/api3.php?do=critical_power_profile&zwift_id=2&zwift_event_id=&type=wkg", `{"efforts": {}}`)
	ctx := context.Background()
	profile := f.scraper.Profile(1)

	for i := 0; i < 2; i++ {
		watts, err := profile.CPWatts(ctx)
		require.NoError(t, err)
		diff := cmp.Diff(CriticalPower{
			"90days": {5: 900, 60: 512},
			"30days": {5: 850},
		}, watts)
		if diff != "" {
			t.Fatal(diff)
		}
		require.Equal(t, []int{5, 60}, watts.Durations("90days"))

		wkg, err := profile.CPWkg(ctx)
		require.NoError(t, err)
		require.Nil(t, wkg, "empty efforts must be nil, not an empty map")
	}

	other, err := f.scraper.Profile(2).CPWkg(ctx)
	require.NoError(t, err)
	require.Nil(t, other)

	require.Equal(t, 1, f.fake.count("/api3.php?do=critical_power_profile&zwift_id=1&zwift_event_id=&type=watts"))
	require.Equal(t, 1, f.fake.count("/api3.php?do=critical_power_profile&zwift_id=1&zwift_event_id=&type=wkg"))
}

func TestPowerProfile(t *testing.T) {
	f := newScraperFixture(t, nil)
	f.fake.serve("/profile.php?z=42", profilePage)

	power, err := f.scraper.Profile(42).PowerProfile(context.Background())
	require.NoError(t, err)

	diff := cmp.Diff(PowerPoint{Top: ptr(1), Value: ptr("12.1"), Pct: ptr(91.5)}, power.Wkg[15])
	if diff != "" {
		t.Fatal(diff)
	}
	diff = cmp.Diff(PowerPoint{Value: ptr("4.1"), Pct: ptr(40.0)}, power.Wkg[1200])
	if diff != "" {
		t.Fatal(diff)
	}
	diff = cmp.Diff(PowerPoint{Top: ptr(2), Value: ptr("352"), Pct: ptr(45.0)}, power.Watt[1200])
	if diff != "" {
		t.Fatal(diff)
	}
	require.Len(t, power.Watt, 4)
}

func TestPowerProfileDecodeFailure(t *testing.T) {
	f := newScraperFixture(t, nil)
	f.fake.serve("/profile.php?z=42", `<html><body>no scripts here</body></html>`)

	power, err := f.scraper.Profile(42).PowerProfile(context.Background())
	require.NoError(t, err)
	require.Equal(t, emptyPowerProfile(), power)
	for _, bucket := range PowerBuckets {
		require.Equal(t, PowerPoint{}, power.Wkg[bucket])
		require.Equal(t, PowerPoint{}, power.Watt[bucket])
	}

	broken := f.tel.Reports(telemetry.SEVERITY_BROKEN, report_profile_power)
	require.Len(t, broken, 1)
	require.Contains(t, broken[0].Params[2], "goroutine", "the report carries a stack trace")
}

func TestProfileRacesWithoutData(t *testing.T) {
	page := `<html><body><table><tr><th>FTP</th><td>250w</td></tr></table></body></html>`
	testCases := []struct {
		name  string
		races string
	}{
		{name: "missing data", races: `{"unexpected": 1}`},
		{name: "null data", races: `{"data": null}`},
		{name: "not json", races: `not json`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newScraperFixture(t, nil)
			f.fake.serve("/profile.php?z=42", page)
			f.fake.serve("/cache3/profile/42_all.json", tc.races)
			ctx := context.Background()
			profile := f.scraper.Profile(42)

			races, err := profile.Races(ctx)
			require.NoError(t, err)
			require.Nil(t, races)
			require.Equal(t, 1, f.warnings(report_profile_races))

			weight, err := profile.Weight(ctx)
			require.NoError(t, err)
			require.Nil(t, weight)
			height, err := profile.Height(ctx)
			require.NoError(t, err)
			require.Nil(t, height)

			require.Equal(t, 3, f.warnings(report_profile_races), "one warning per access")
			require.Zero(t, f.warnings(report_profile_weight), "the races failure was already reported")
			require.Zero(t, f.warnings(report_profile_height))
			require.Equal(t, 1, f.fake.count("/cache3/profile/42_all.json"))
		})
	}
}

func TestCriticalPowerWithoutEfforts(t *testing.T) {
	f := newScraperFixture(t, nil)
	f.fake.serve("/api3.php?do=critical_power_profile&zwift_id=1&zwift_event_id=&type=watts", `{"unexpected": 1}`)
	f.fake.serve("/api3.php?do=critical_power_profile&zwift_id=1&zwift_event_id=&type=wkg", `{"efforts": []}`)
	f.fake.serve("/api3.php?do=critical_power_profile&zwift_id=2&zwift_event_id=&type=wkg", `{"efforts": {}}`)
	ctx := context.Background()

	watts, err := f.scraper.Profile(1).CPWatts(ctx)
	require.NoError(t, err)
	require.Nil(t, watts)
	require.Equal(t, 1, f.warnings(report_profile_cp))

	wkg, err := f.scraper.Profile(1).CPWkg(ctx)
	require.NoError(t, err)
	require.Nil(t, wkg)
	wkg, err = f.scraper.Profile(2).CPWkg(ctx)
	require.NoError(t, err)
	require.Nil(t, wkg)
	require.Equal(t, 1, f.warnings(report_profile_cp), "no efforts is not a soft failure")
}

func spiderPage(literals ...string) string {
	return `<html><head><script>
function load_profile_spider() {
	var wkg = [` + strings.Join(literals, ", ") + `];
}
</script></head><body></body></html>`
}

func TestPowerProfileMalformedSpider(t *testing.T) {
	f := newScraperFixture(t, nil)
	f.fake.serve("/profile.php?z=42", spiderPage("garbage"))
	f.fake.serve("/profile.php?z=43", spiderPage(
		"{ mean: 1, y: 10, ours: '1.0 w/kg', color: '#cccccc' }",
		"{ mean: 1, y: 20, ours: '2.0 w/kg', color: '#cccccc' }",
	))

	for _, id := range []int{42, 43} {
		power, err := f.scraper.Profile(id).PowerProfile(context.Background())
		require.NoError(t, err)
		require.Equal(t, emptyPowerProfile(), power)
	}
	broken := f.tel.Reports(telemetry.SEVERITY_BROKEN, report_profile_power)
	require.Len(t, broken, 2)
	require.Equal(t, errSpiderLiterals, broken[0].Params[1])
}

func TestPowerProfileWithoutOurs(t *testing.T) {
	literals := []string{"{ mean: 1, y: 10, color: '#f26f33' }"}
	for i := 1; i < len(PowerBuckets)*2; i++ {
		literals = append(literals, "{ mean: 1, y: 10, ours: '1 w/kg', color: '#cccccc' }")
	}
	f := newScraperFixture(t, nil)
	f.fake.serve("/profile.php?z=42", spiderPage(literals...))

	power, err := f.scraper.Profile(42).PowerProfile(context.Background())
	require.NoError(t, err)
	diff := cmp.Diff(PowerPoint{Top: ptr(1), Pct: ptr(10.0)}, power.Wkg[15])
	if diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, ptr("1"), power.Watt[1200].Value)
	require.Empty(t, f.tel.Reports(telemetry.SEVERITY_BROKEN, ""))
}
