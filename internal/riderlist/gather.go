package riderlist

import (
	"context"
	"time"

	"bakpdlbot/internal/components/assert"
	"bakpdlbot/internal/components/chrono"
	"bakpdlbot/internal/httpcache"
	"bakpdlbot/internal/zwiftpower"
	"bakpdlbot/internal/zwiftracing"
)

// Entry is one rider of a list.
type Entry struct {
	ID   int
	Name string
	// Rider is the team or race row, nil for the riders source.
	Rider   *zwiftpower.Rider
	Profile *zwiftpower.Profile
	// Racing is the zwiftracing ranking of a team member, nil if unknown.
	Racing *zwiftracing.Rider
}

// Data is what templates are executed with.
type Data struct {
	// Ctx must be passed to every entity accessor, ex. {{ .Profile.FTP $.Ctx }}.
	Ctx     context.Context
	Type    SourceType
	Now     time.Time
	Args    map[string]string
	Scraper *zwiftpower.Scraper
	Team    *zwiftpower.Team
	Race    *zwiftpower.Race
	Riders  []Entry
}

type Gatherer struct {
	Scraper *zwiftpower.Scraper
	// Racing is optional, team lists are joined with zwiftracing rankings if set.
	Racing *zwiftracing.Client
	// Time defaults to the standard time.
	Time chrono.TimeAPI
}

func entryOf(r *zwiftpower.Rider) Entry {
	return Entry{ID: r.ID(), Name: r.Name(), Rider: r, Profile: r.Profile()}
}

// Gather loads the riders of a source. The source itself is always loaded fresh, the
// cache only serves what templates request afterwards.
func (g Gatherer) Gather(ctx context.Context, src Source) (Data, error) {
	assert.NotNil(g.Scraper)
	fresh := httpcache.WithoutCache(ctx)

	clock := g.Time
	if clock == nil {
		clock = chrono.NewStandardTime()
	}
	data := Data{Ctx: ctx, Type: src.Type, Now: clock.Now(), Scraper: g.Scraper}
	switch src.Type {
	case SourceTeam:
		team := g.Scraper.Team(src.IDs[0])
		members, err := team.Members(fresh)
		if err != nil {
			return Data{}, err
		}
		ranked := map[int]*zwiftracing.Rider{}
		if g.Racing != nil {
			riders, err := g.Racing.Team(team.ID).Riders(fresh, 0)
			if err != nil {
				return Data{}, err
			}
			for i := range riders {
				ranked[riders[i].ID()] = &riders[i]
			}
		}
		data.Team = team
		for _, m := range members {
			entry := entryOf(m.Rider)
			entry.Racing = ranked[entry.ID]
			data.Riders = append(data.Riders, entry)
		}
	case SourceRiders:
		for _, id := range src.IDs {
			profile := g.Scraper.Profile(id)
			name, err := profile.Name(fresh)
			if err != nil {
				return Data{}, err
			}
			entry := Entry{ID: id, Profile: profile}
			if name != nil {
				entry.Name = *name
			}
			data.Riders = append(data.Riders, entry)
		}
	default:
		race := g.Scraper.Race(src.IDs[0])
		list := race.Signups
		switch src.Type {
		case SourceRaceResults:
			list = race.Results
		case SourceRaceUnfiltered:
			list = race.Unfiltered
		}
		entrants, err := list(fresh)
		if err != nil {
			return Data{}, err
		}
		data.Race = race
		for _, e := range entrants {
			data.Riders = append(data.Riders, entryOf(e.Rider))
		}
	}
	return data, nil
}
