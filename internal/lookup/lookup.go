// Package lookup resolves free text rider queries to zwift ids using the club roster.
package lookup

import (
	"context"
	"strconv"
	"strings"

	"bakpdlbot/internal/components/assert"
	"bakpdlbot/internal/components/telemetry"
	"bakpdlbot/internal/zwiftpower"
	"bakpdlbot/lib/textutil"

	"github.com/antzucaro/matchr"
)

const (
	report_resolver_resolve = "resolver.resolve"
)

const (
	// MaxQueries is the amount of queries resolved per call, the rest is ignored.
	MaxQueries = 5
	// MinSimilarity is the jaro-winkler similarity a fuzzy match needs.
	MinSimilarity = 0.9
)

// Candidate is a roster entry that can be matched.
type Candidate struct {
	ID   int
	Name string
}

type matcher struct {
	name  string
	match func(query, name string) bool
}

var matchers = []matcher{
	{name: "exact", match: func(q, n string) bool { return q == n }},
	{name: "prefix", match: strings.HasPrefix},
	{name: "contains", match: strings.Contains},
}

// FindMembers matches a query against candidates by exact name, then prefix, then substring
// (case insensitive), the first step with any match wins. When nothing matches, the single most
// similar candidate is returned if it is similar enough.
func FindMembers(candidates []Candidate, query string) []Candidate {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	for _, m := range matchers {
		var out []Candidate
		for _, c := range candidates {
			if m.match(strings.ToLower(c.Name), q) {
				out = append(out, c)
			}
		}
		if len(out) > 0 {
			return out
		}
	}

	normalized := textutil.NormalizeName(q)
	var best Candidate
	var bestSimilarity float64
	for _, c := range candidates {
		similarity := matchr.JaroWinkler(normalized, textutil.NormalizeName(c.Name), false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = c
		}
	}
	if bestSimilarity >= MinSimilarity {
		return []Candidate{best}
	}
	return nil
}

// Roster lists the members of the club, *zwiftpower.Team is one.
type Roster interface {
	Members(ctx context.Context) ([]zwiftpower.Member, error)
}

// Result is the outcome of one query, IDs is nil when nothing matched.
type Result struct {
	Query string
	IDs   []int
}

type Resolver struct {
	roster Roster
	tel    telemetry.API
}

func NewResolver(roster Roster, tel telemetry.API) Resolver {
	assert.NotNil(roster)
	assert.NotNil(tel)
	return Resolver{
		roster: roster,
		tel:    telemetry.NewScopedAPI("lookup", tel),
	}
}

// Resolve resolves up to MaxQueries queries in order. Integer queries resolve to themselves,
// everything else is matched against the roster which is loaded at most once.
func (r Resolver) Resolve(ctx context.Context, queries []string) ([]Result, error) {
	if len(queries) > MaxQueries {
		queries = queries[:MaxQueries]
	}

	var candidates []Candidate
	loaded := false

	results := make([]Result, 0, len(queries))
	for _, query := range queries {
		if id, err := strconv.Atoi(strings.TrimSpace(query)); err == nil {
			results = append(results, Result{Query: query, IDs: []int{id}})
			continue
		}

		if !loaded {
			members, err := r.roster.Members(ctx)
			if err != nil {
				r.tel.ReportBroken(report_resolver_resolve, err)
				return nil, err
			}
			candidates = make([]Candidate, len(members))
			for i, m := range members {
				candidates[i] = Candidate{ID: m.ID(), Name: m.Name()}
			}
			loaded = true
		}

		matches := FindMembers(candidates, query)
		r.tel.ReportDebug(report_resolver_resolve, query, len(matches))

		result := Result{Query: query}
		for _, m := range matches {
			result.IDs = append(result.IDs, m.ID)
		}
		results = append(results, result)
	}
	return results, nil
}
