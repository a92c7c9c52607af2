package httpcache

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestKey(t *testing.T) {
	testCases := []struct {
		method   string
		url      string
		expected string
	}{
		{
			method:   "get",
			url:      "HTTPS://ZwiftPower.com/profile.php?z=1",
			expected: "GET https://zwiftpower.com/profile.php?z=1",
		},
		{
			method:   "GET",
			url:      "https://zwiftpower.com/api3.php?type=wkg&do=critical_power_profile&zwift_id=5&zwift_event_id=",
			expected: "GET https://zwiftpower.com/api3.php?do=critical_power_profile&type=wkg&zwift_event_id=&zwift_id=5",
		},
		{
			method:   "GET",
			url:      "https://zwiftpower.com/team.php?id=2#tab-members",
			expected: "GET https://zwiftpower.com/team.php?id=2",
		},
		{
			method:   "GET",
			url:      "https://zwiftpower.com",
			expected: "GET https://zwiftpower.com/",
		},
	}

	for _, test := range testCases {
		t.Run(test.url, func(t *testing.T) {
			diff := cmp.Diff(test.expected, Key(test.method, test.url))
			if diff != "" {
				t.Fatal(diff)
			}
		})
	}
}
