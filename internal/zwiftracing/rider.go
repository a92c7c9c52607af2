package zwiftracing

import (
	"encoding/json"
	"strings"

	"bakpdlbot/lib/jsonutil"
)

// Rider is one ranked rider of a club.
type Rider struct {
	raw map[string]jsonutil.Value
}

func (r *Rider) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &r.raw)
}

func (r Rider) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.raw)
}

// toCamel converts snake_case to the api's camelCase keys.
func toCamel(s string) string {
	words := strings.Split(s, "_")
	for i := 1; i < len(words); i++ {
		if words[i] == "" {
			continue
		}
		words[i] = strings.ToUpper(words[i][:1]) + strings.ToLower(words[i][1:])
	}
	return strings.Join(words, "")
}

// Field returns any key of the rider, snake_case names are accepted.
func (r Rider) Field(name string) jsonutil.Value {
	if v, ok := r.raw[name]; ok {
		return v
	}
	return r.raw[toCamel(name)]
}

func (r Rider) ID() int {
	id, _ := r.raw["riderId"].Int()
	return id
}

func (r Rider) Name() string {
	return r.raw["name"].String()
}

func (r Rider) Country() string {
	return r.raw["country"].String()
}

func (r Rider) Club() string {
	return r.raw["club"].Get("name").String()
}

func (r Rider) current() jsonutil.Value {
	return r.raw["race"].Get("current")
}

// Rating is the current vELO rating, false when unrated.
func (r Rider) Rating() (float64, bool) {
	return r.current().Get("rating").Float()
}

// Category is the current mixed category name ("Diamond", "Ruby", …).
func (r Rider) Category() string {
	return r.current().Get("mixed").Get("category").String()
}
