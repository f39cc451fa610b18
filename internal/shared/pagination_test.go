package shared

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	cases := []struct {
		name  string
		query string
		take  int
		skip  int
	}{
		{name: "defaults", query: "", take: DefaultTake, skip: 0},
		{name: "explicit", query: "?take=10&skip=30", take: 10, skip: 30},
		{name: "take clamped to max", query: "?take=9999", take: MaxTake, skip: 0},
		{name: "negative values ignored", query: "?take=-5&skip=-1", take: DefaultTake, skip: 0},
		{name: "garbage ignored", query: "?take=abc&skip=xyz", take: DefaultTake, skip: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/users"+tc.query, nil)
			page := ParsePagination(r)
			require.Equal(t, tc.take, page.Take)
			require.Equal(t, tc.skip, page.Skip)
		})
	}
}
