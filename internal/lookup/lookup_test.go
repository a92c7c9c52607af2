package lookup

import (
	"context"
	"errors"
	"testing"

	"bakpdlbot/internal/components/telemetry"
	"bakpdlbot/internal/zwiftpower"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var roster = []Candidate{
	{ID: 1, Name: "Jan Jansen"},
	{ID: 2, Name: "Janneke de Vries"},
	{ID: 3, Name: "Piet Pieters [BAKPDL]"},
	{ID: 4, Name: "Marianne Vos"},
}

func TestFindMembers(t *testing.T) {
	cases := []struct {
		query    string
		expected []int
	}{
		{query: "jan jansen", expected: []int{1}},
		{query: "JAN", expected: []int{1, 2}},
		{query: "janneke", expected: []int{2}},
		{query: "pieters", expected: []int{3}},
		{query: "vries", expected: []int{2}},
		{query: "Marianne Voss", expected: []int{4}},
		{query: "nobody at all", expected: nil},
		{query: "  ", expected: nil},
	}

	for _, test := range cases {
		t.Run(test.query, func(t *testing.T) {
			var ids []int
			for _, c := range FindMembers(roster, test.query) {
				ids = append(ids, c.ID)
			}
			if diff := cmp.Diff(test.expected, ids); diff != "" {
				t.Fatalf("ids (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFindMembersExactBeatsPrefix(t *testing.T) {
	candidates := []Candidate{
		{ID: 1, Name: "Ed"},
		{ID: 2, Name: "Eddy Merckx"},
	}
	require.Equal(t, []Candidate{{ID: 1, Name: "Ed"}}, FindMembers(candidates, "ed"))
}

type fakeRoster struct {
	calls   int
	members []zwiftpower.Member
	err     error
}

func (f *fakeRoster) Members(context.Context) ([]zwiftpower.Member, error) {
	f.calls++
	return f.members, f.err
}

func TestResolveIntegersSkipRoster(t *testing.T) {
	r := &fakeRoster{err: errors.New("must not be called")}
	resolver := NewResolver(r, telemetry.NewRecorder())

	results, err := resolver.Resolve(context.Background(), []string{"123", " 456 "})
	require.NoError(t, err)
	require.Equal(t, []Result{
		{Query: "123", IDs: []int{123}},
		{Query: " 456 ", IDs: []int{456}},
	}, results)
	require.Zero(t, r.calls)
}

func TestResolveLimitsQueries(t *testing.T) {
	resolver := NewResolver(&fakeRoster{}, telemetry.NewRecorder())
	results, err := resolver.Resolve(context.Background(), []string{"1", "2", "3", "4", "5", "6", "7"})
	require.NoError(t, err)
	require.Len(t, results, MaxQueries)
}

func TestResolveRosterError(t *testing.T) {
	tel := telemetry.NewRecorder()
	resolver := NewResolver(&fakeRoster{err: errors.New("boom")}, tel)

	_, err := resolver.Resolve(context.Background(), []string{"jan"})
	require.Error(t, err)
	require.Len(t, tel.Reports(telemetry.SEVERITY_BROKEN, report_resolver_resolve), 1)
}

func TestResolveEmptyRoster(t *testing.T) {
	r := &fakeRoster{}
	resolver := NewResolver(r, telemetry.NewRecorder())

	results, err := resolver.Resolve(context.Background(), []string{"jan", "piet"})
	require.NoError(t, err)
	require.Equal(t, []Result{{Query: "jan"}, {Query: "piet"}}, results)
	require.Equal(t, 1, r.calls)
}
