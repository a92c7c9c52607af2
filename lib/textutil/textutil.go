package textutil

import (
	"regexp"
	"strconv"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases a name and removes all of its whitespace.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// ParseGroupedInt parses an integer that may contain thousands separators ("1,234" or "1 234").
func ParseGroupedInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(",", "", " ", "", "\u00a0", "", "'", "").Replace(s)
	return strconv.Atoi(s)
}

// FirstWord returns the first whitespace separated word of s.
func FirstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
