// Package render formats zwiftpower data for chat messages and rider list templates.
package render

import "strings"

// CatStr converts a zwiftpower division to its category label.
func CatStr(div int) string {
	switch div {
	case 0:
		return ""
	case 5:
		return "A+"
	case 10:
		return "A"
	case 20:
		return "B"
	case 30:
		return "C"
	case 40:
		return "D"
	}
	return "?"
}

// FlagUnicode converts a country code ("nl") to its flag emoji, subdivision codes ("gb-eng")
// become tag sequence flags.
func FlagUnicode(flag string) string {
	var out strings.Builder
	switch {
	case len(flag) == 2:
		for _, r := range strings.ToUpper(flag) {
			out.WriteRune(0x1F1E6 - 'A' + r)
		}
	case len(flag) > 2:
		out.WriteRune(0x1F3F4)
		for _, r := range strings.ReplaceAll(strings.ToLower(flag), "-", "") {
			out.WriteRune(0xE0061 - 'a' + r)
		}
		out.WriteRune(0xE007F)
	}
	return out.String()
}
