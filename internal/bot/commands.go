package bot

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"bakpdlbot/internal/lookup"
	"bakpdlbot/internal/render"
	"bakpdlbot/internal/zwiftpower"
)

const (
	report_bot_profile = "bot.profile"
	report_bot_racing  = "bot.racing"
)

const sheetMessage = "Find the google sheet at:\n" +
	"<https://docs.google.com/spreadsheets/d/16ip9cd6kpH2fl0dJYlG4UC1VOJL2eYjd8WSSXJMjss4/edit?usp=sharing>"

const eventsMessage = "Find our Backpedal events here:\n" +
	"<https://www.zwift.com/events/tag/backpedal>\n" +
	"<https://zwiftpower.com/series.php?id=BACKPEDAL>"

// maxIDs is the most ids listed for a single !zwiftid query.
const maxIDs = 5

func static(msg string) func(context.Context, []string) (string, error) {
	return func(context.Context, []string) (string, error) {
		return msg, nil
	}
}

func (b *Bot) resolve(ctx context.Context, queries []string) ([]lookup.Result, error) {
	team := b.scraper.Team(b.teamID)
	return lookup.NewResolver(team, b.tel).Resolve(ctx, queries)
}

// profileName never fails, the id stands in for names that can not be loaded.
func (b *Bot) profileName(ctx context.Context, id int) string {
	name, err := b.scraper.Profile(id).Name(ctx)
	if err != nil {
		b.tel.ReportWarning(report_bot_profile, id, err)
		return strconv.Itoa(id)
	}
	if name == nil {
		return strconv.Itoa(id)
	}
	return *name
}

func (b *Bot) zwiftID(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "Usage: !zwiftid <name or id> [...]", nil
	}
	results, err := b.resolve(ctx, args)
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(results))
	for _, result := range results {
		if len(result.IDs) == 0 || len(result.IDs) > maxIDs {
			lines = append(lines, fmt.Sprintf("%s: Not found or too many results", result.Query))
			continue
		}
		entries := make([]string, len(result.IDs))
		for i, id := range result.IDs {
			entries[i] = fmt.Sprintf("%d (%s)", id, b.profileName(ctx, id))
		}
		lines = append(lines, fmt.Sprintf("%s: %s", result.Query, strings.Join(entries, " / ")))
	}
	return strings.Join(lines, "\n"), nil
}

const (
	graphWkg  = "w/kg"
	graphWatt = "watt"
)

func graphType(arg string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "wkg", "w/kg":
		return graphWkg, true
	case "watt", "watts", "raw":
		return graphWatt, true
	}
	return "", false
}

var cpDurations = []struct {
	label   string
	seconds int
}{
	{"5s", 5},
	{"15s", 15},
	{"1m", 60},
	{"5m", 300},
	{"20m", 1200},
	{"60m", 3600},
}

const cpWindow = "90days"

func (b *Bot) criticalPower(ctx context.Context, args []string) (string, error) {
	kind := graphWkg
	if len(args) > 0 {
		if t, ok := graphType(args[0]); ok {
			kind = t
			args = args[1:]
		}
	}
	if len(args) == 0 {
		return "Usage: !cp [wkg|watt] <name or id> [...]", nil
	}

	results, err := b.resolve(ctx, args)
	if err != nil {
		return "", err
	}
	var ids []int
	var problems []string
	for _, result := range results {
		switch len(result.IDs) {
		case 0:
			problems = append(problems, fmt.Sprintf("No matches for %s", result.Query))
		case 1:
			ids = append(ids, result.IDs[0])
		default:
			problems = append(problems, fmt.Sprintf("Too many matches (%d) for %s", len(result.IDs), result.Query))
		}
	}

	var out strings.Builder
	out.WriteString(strings.Join(problems, "\n"))
	if len(ids) == 0 {
		return out.String(), nil
	}

	header := []string{"name"}
	for _, d := range cpDurations {
		header = append(header, d.label)
	}
	format := "%.2f"
	if kind == graphWatt {
		format = "%.0f"
	}

	rows := make([][]any, 0, len(ids))
	for _, id := range ids {
		profile := b.scraper.Profile(id)
		var cp zwiftpower.CriticalPower
		if kind == graphWatt {
			cp, err = profile.CPWatts(ctx)
		} else {
			cp, err = profile.CPWkg(ctx)
		}
		if err != nil {
			return "", err
		}
		row := []any{b.profileName(ctx, id)}
		for _, d := range cpDurations {
			value, ok := cp[cpWindow][d.seconds]
			if !ok {
				row = append(row, "-")
				continue
			}
			row = append(row, fmt.Sprintf(format, value))
		}
		rows = append(rows, row)
	}

	if out.Len() > 0 {
		out.WriteString("\n")
	}
	fmt.Fprintf(&out, "90 day critical power (%s)\n", kind)
	out.WriteString(render.CodeBlock(render.Table(header, rows)))
	return out.String(), nil
}

func (b *Bot) ratings(ctx context.Context) map[int]float64 {
	if b.racing == nil {
		return nil
	}
	riders, err := b.racing.Team(b.teamID).Riders(ctx, 0)
	if err != nil {
		b.tel.ReportWarning(report_bot_racing, b.teamID, err)
		return nil
	}
	out := map[int]float64{}
	for _, r := range riders {
		if rating, ok := r.Rating(); ok {
			out[r.ID()] = rating
		}
	}
	return out
}

func (b *Bot) team(ctx context.Context, _ []string) (string, error) {
	team := b.scraper.Team(b.teamID)
	members, err := team.Members(ctx)
	if err != nil {
		return "", err
	}
	name, err := team.Name(ctx)
	if err != nil {
		return "", err
	}
	teamName := strconv.Itoa(b.teamID)
	if name != nil {
		teamName = *name
	}
	ratings := b.ratings(ctx)

	header := []string{"name", "cat", "flag"}
	if ratings != nil {
		header = append(header, "vELO")
	}
	rows := make([][]any, 0, len(members))
	for _, m := range members {
		row := []any{m.Name(), render.CatStr(m.Division()), render.FlagUnicode(m.Flag())}
		if ratings != nil {
			rating, ok := ratings[m.ID()]
			if ok {
				row = append(row, fmt.Sprintf("%.0f", rating))
			} else {
				row = append(row, "-")
			}
		}
		rows = append(rows, row)
	}

	return fmt.Sprintf("%s: %d members\n%s", teamName, len(members), render.CodeBlock(render.Table(header, rows))), nil
}

func (b *Bot) signups(ctx context.Context, args []string) (string, error) {
	if len(args) != 1 {
		return "Usage: !signups <zwiftpower race id>", nil
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return "Usage: !signups <zwiftpower race id>", nil
	}

	race := b.scraper.Race(id)
	name, err := race.Name(ctx)
	if err != nil {
		return "", err
	}
	raceName := race.URL()
	if name != nil {
		raceName = *name
	}
	entrants, err := race.Signups(ctx)
	if err != nil {
		return "", err
	}
	if len(entrants) == 0 {
		return fmt.Sprintf("No signups for %s", raceName), nil
	}

	byCategory := map[string][]string{}
	for _, e := range entrants {
		byCategory[e.Category()] = append(byCategory[e.Category()], e.Name())
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	lines := []string{fmt.Sprintf("%s: %d signups", raceName, len(entrants))}
	for _, c := range categories {
		label := c
		if label == "" {
			label = "?"
		}
		lines = append(lines, fmt.Sprintf("%s (%d): %s", label, len(byCategory[c]), strings.Join(byCategory[c], ", ")))
	}
	return strings.Join(lines, "\n"), nil
}
