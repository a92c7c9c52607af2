package htmlutil

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetText concatenates every text node under `node` in document order.
func GetText(node *html.Node) string {
	var out strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			out.WriteString(n.Data)
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	if node != nil {
		walk(node)
	}
	return out.String()
}

// Clean collapses every run of whitespace (nbsp included) into a single
// space, trims the ends and drops the remaining non-printable runes.
func Clean(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, s)
}

// CleanText is Clean applied to the text of a node.
func CleanText(node *html.Node) string {
	return Clean(GetText(node))
}

// FirstText returns the clean text of the first node matching `selector`,
// false is returned if nothing matches.
func FirstText(sel *goquery.Selection, selector string) (string, bool) {
	found := sel.Find(selector).First()
	if found.Length() == 0 {
		return "", false
	}
	return CleanText(found.Nodes[0]), true
}
