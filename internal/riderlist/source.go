// Package riderlist renders lists of zwiftpower riders through text templates.
package riderlist

import (
	"fmt"
	"strconv"
	"strings"
)

type SourceType string

const (
	SourceTeam           SourceType = "team"
	SourceRiders         SourceType = "riders"
	SourceRaceSignups    SourceType = "race_signups"
	SourceRaceResults    SourceType = "race_results"
	SourceRaceUnfiltered SourceType = "race_unfiltered"
)

var sourceTypes = []SourceType{
	SourceTeam,
	SourceRiders,
	SourceRaceSignups,
	SourceRaceResults,
	SourceRaceUnfiltered,
}

// Source is where the riders of a list come from, ex. "team:13264" or "riders:514482,399078".
type Source struct {
	Type SourceType
	// IDs holds exactly one id for every type except riders.
	IDs []int
}

func (s Source) String() string {
	ids := make([]string, len(s.IDs))
	for i, id := range s.IDs {
		ids[i] = strconv.Itoa(id)
	}
	return fmt.Sprintf("%s:%s", s.Type, strings.Join(ids, ","))
}

func ParseSource(value string) (Source, error) {
	typ, rawIDs, ok := strings.Cut(value, ":")
	if !ok {
		return Source{}, fmt.Errorf("format must be type:id")
	}

	known := false
	names := make([]string, len(sourceTypes))
	for i, t := range sourceTypes {
		names[i] = string(t)
		if string(t) == typ {
			known = true
		}
	}
	if !known {
		return Source{}, fmt.Errorf("unsupported type %s. supported source types: %s", typ, strings.Join(names, ", "))
	}

	parts := []string{rawIDs}
	if SourceType(typ) == SourceRiders {
		parts = strings.Split(rawIDs, ",")
	}
	src := Source{Type: SourceType(typ)}
	for _, p := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Source{}, fmt.Errorf("id must be an integer (comma-separated ints, where supported): %w", err)
		}
		src.IDs = append(src.IDs, id)
	}
	return src, nil
}

// ParseVar parses a NAME=VALUE template variable.
func ParseVar(value string) (name, val string, err error) {
	name, val, ok := strings.Cut(value, "=")
	if !ok {
		return "", "", fmt.Errorf("format must be NAME=VALUE")
	}
	return name, val, nil
}
