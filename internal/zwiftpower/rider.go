package zwiftpower

import (
	"errors"
	"fmt"
	"sync"

	"bakpdlbot/lib/jsonutil"
)

// Rider is one row of a team riders or race json document.
type Rider struct {
	data    map[string]jsonutil.Value
	scraper *Scraper

	profileOnce sync.Once
	profile     *Profile
}

func newRider(data map[string]jsonutil.Value, scraper *Scraper) *Rider {
	if data == nil {
		data = map[string]jsonutil.Value{}
	}
	return &Rider{data: data, scraper: scraper}
}

// Field returns any key of the underlying row, the value is null if absent.
func (r *Rider) Field(name string) jsonutil.Value {
	return r.data[name]
}

// Data returns the underlying row.
func (r *Rider) Data() map[string]jsonutil.Value {
	return r.data
}

// ID is the zwift id of the rider.
func (r *Rider) ID() int {
	id, _ := r.data["zwid"].Int()
	return id
}

func (r *Rider) Name() string {
	return r.data["name"].String()
}

// Flag is the lowercase country (or subdivision) code of the rider.
func (r *Rider) Flag() string {
	return r.data["flag"].String()
}

// TeamID is false when the rider is not on a team.
func (r *Rider) TeamID() (int, bool) {
	id, ok := r.data["tid"].Int()
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

func (r *Rider) TeamName() string {
	return r.data["tname"].String()
}

func (r *Rider) Category() string {
	return r.data["category"].String()
}

// Division is the numeric category (5 = A+, 10 = A, …, 40 = D, 0 = none).
func (r *Rider) Division() int {
	div, _ := r.data["div"].Int()
	return div
}

// Profile returns the profile of the rider, the handle is created once.
func (r *Rider) Profile() *Profile {
	r.profileOnce.Do(func() {
		r.profile = r.scraper.Profile(r.ID())
	})
	return r.profile
}

func (r *Rider) String() string {
	return fmt.Sprintf("%s <%d>", r.Name(), r.ID())
}

// Member is a rider listed on a team.
type Member struct {
	*Rider
}

// Entrant is a rider listed on a race.
type Entrant struct {
	*Rider
}

// Team returns the team the entrant rode for, nil if none.
func (e Entrant) Team() *Team {
	id, ok := e.TeamID()
	if !ok {
		return nil
	}
	return e.scraper.Team(id)
}

// errNoData is reported when a rider list document has no "data" key (or it is null),
// an empty list is sent as "data": [].
var errNoData = errors.New(`document has no "data" list`)

// riderRows is the shape of every zwiftpower json document listing riders.
type riderRows struct {
	Data []map[string]jsonutil.Value `json:"data"`
}
