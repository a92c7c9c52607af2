package render

import (
	"strings"
	"time"

	"bakpdlbot/internal/zwiftpower"
)

func IsRace(race zwiftpower.ProfileRace) bool {
	return strings.Contains(race.Types(), "TYPE_RACE")
}

func isZRL(race zwiftpower.ProfileRace) bool {
	return strings.Contains(strings.ToLower(race.EventTitle()), "zwift racing league")
}

type day struct {
	year  int
	month time.Month
	day   int
}

// zrlTTTDays are the days zwift racing league ran a team time trial.
var zrlTTTDays = map[day]bool{}

func init() {
	days := []day{
		// 20/21 season 1
		{2020, 10, 19}, {2020, 10, 20},
		{2020, 11, 2}, {2020, 11, 3},
		{2020, 11, 16}, {2020, 11, 17},
		{2020, 11, 30}, {2020, 12, 1},
		{2020, 12, 15}, {2020, 12, 16},
		// 20/21 season 2
		{2021, 1, 18}, {2021, 1, 19},
		{2021, 2, 8}, {2021, 2, 9},
		{2021, 3, 1}, {2021, 3, 2},
		// 20/21 season 3
		{2021, 4, 6}, {2021, 4, 7},
		{2021, 4, 27}, {2021, 4, 28},
		{2021, 5, 18}, {2021, 5, 19},
		{2021, 6, 6}, {2021, 6, 7},
		// 21/22 season 1
		{2021, 9, 28}, {2021, 9, 29},
		{2021, 10, 8}, {2021, 10, 9},
		{2021, 11, 23}, {2021, 11, 24},
		// 21/22 season 2
		{2022, 2, 1}, {2022, 2, 2},
		{2022, 2, 22}, {2022, 2, 23},
		{2022, 3, 12}, {2022, 3, 13},
		// 21/22 season 3
		{2022, 4, 12}, {2022, 4, 13},
		{2022, 5, 3}, {2022, 5, 4},
		// 22/23
		{2022, 9, 27}, {2022, 9, 28},
		{2022, 11, 15}, {2022, 11, 16},
		{2022, 12, 6}, {2022, 12, 7},
		{2023, 1, 17}, {2023, 1, 18},
		{2023, 2, 7}, {2023, 2, 8},
		// 23/24
		{2023, 9, 26}, {2023, 9, 27},
		{2023, 10, 17}, {2023, 10, 18},
		{2023, 11, 28}, {2023, 11, 29},
		{2023, 12, 19}, {2023, 12, 20},
		{2024, 2, 6}, {2024, 2, 7},
		{2024, 2, 27}, {2024, 2, 28},
		// 24/25
		{2024, 9, 10}, {2024, 9, 11},
		{2024, 10, 1}, {2024, 10, 2},
	}
	for _, d := range days {
		zrlTTTDays[d] = true
	}
}

func isZRLTTT(race zwiftpower.ProfileRace) bool {
	if !isZRL(race) {
		return false
	}
	date := race.EventDate().UTC()
	return zrlTTTDays[day{date.Year(), date.Month(), date.Day()}]
}

func isWTRLTTT(race zwiftpower.ProfileRace) bool {
	return strings.Contains(race.EventTitle(), "WTRL Team Time Trial")
}

func isFRRTTT(race zwiftpower.ProfileRace) bool {
	title := race.EventTitle()
	return strings.Contains(title, "FRR") && strings.Contains(title, "TTT")
}

// IsTTT reports whether a race was a team time trial.
func IsTTT(race zwiftpower.ProfileRace) bool {
	return isWTRLTTT(race) || isZRLTTT(race) || isFRRTTT(race)
}

func filter(races []zwiftpower.ProfileRace, keep func(zwiftpower.ProfileRace) bool) []zwiftpower.ProfileRace {
	out := []zwiftpower.ProfileRace{}
	for _, r := range races {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Races keeps the actual races of a race history.
func Races(races []zwiftpower.ProfileRace) []zwiftpower.ProfileRace {
	return filter(races, IsRace)
}

// TTTs keeps the team time trials of a race history.
func TTTs(races []zwiftpower.ProfileRace) []zwiftpower.ProfileRace {
	return filter(races, IsTTT)
}
