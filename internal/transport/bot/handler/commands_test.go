package handler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bidzhoyandavid/auto-bot/internal/scraper"
)

func TestParseTarget(t *testing.T) {
	testCases := []struct {
		name    string
		text    string
		want    scraper.TargetCar
		wantErr bool
	}{
		{name: "make and model", text: "/watch BMW X5", want: scraper.TargetCar{Make: "BMW", Model: "X5"}},
		{name: "multi-word model", text: "/watch Toyota Land Cruiser Prado", want: scraper.TargetCar{Make: "Toyota", Model: "Land Cruiser Prado"}},
		{name: "make only", text: "/watch Lexus", want: scraper.TargetCar{Make: "Lexus"}},
		{name: "missing arguments", text: "/watch", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)

			got, err := parseTarget(tc.text)
			if tc.wantErr {
				rq.Error(err)
				return
			}

			rq.NoError(err)
			rq.Equal(tc.want, got)
		})
	}
}

func TestSortedKeys(t *testing.T) {
	rq := require.New(t)

	keys := sortedKeys(map[string]int64{"myauto.ge": 2, "list.am": 5})
	rq.Equal([]string{"list.am", "myauto.ge"}, keys)
}
