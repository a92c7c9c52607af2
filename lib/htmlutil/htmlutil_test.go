package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{in: "  Bakpdl\n\t Racing  ", expected: "Bakpdl Racing"},
		{in: "A\u00a0\u00a0B", expected: "A B"},
		{in: "zero\u200bwidth", expected: "zerowidth"},
		{in: "", expected: ""},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.expected, Clean(tc.in), tc.in)
	}
}

func TestFirstText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<div><h3> Race <b>one</b>
		</h3><h3>two</h3></div>`,
	))
	require.NoError(t, err)

	text, ok := FirstText(doc.Selection, "h3")
	require.True(t, ok)
	require.Equal(t, "Race one", text)

	_, ok = FirstText(doc.Selection, "textarea")
	require.False(t, ok)

	require.Equal(t, " Race one\n\t\t", GetText(doc.Find("h3").Nodes[0]))
}
