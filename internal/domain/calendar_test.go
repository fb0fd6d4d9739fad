package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeasonOf(t *testing.T) {
	want := map[int]string{
		12: Winter, 1: Winter, 2: Winter,
		3: Spring, 4: Spring, 5: Spring,
		6: Summer, 7: Summer, 8: Summer,
		9: Fall, 10: Fall, 11: Fall,
	}
	for m, season := range want {
		assert.Equal(t, season, SeasonOf(m), MonthAbbr(m))
		assert.Equal(t, season, SeasonOfAbbr(MonthAbbr(m)))
	}
	assert.Empty(t, SeasonOf(0))
	assert.Empty(t, SeasonOf(13))
}

func TestMonthAbbr(t *testing.T) {
	assert.Equal(t, "Jan", MonthAbbr(1))
	assert.Equal(t, "Dec", MonthAbbr(12))
	assert.Empty(t, MonthAbbr(0))
	for m := 1; m <= 12; m++ {
		assert.Equal(t, m, MonthNumber(MonthAbbr(m)))
	}
	assert.Zero(t, MonthNumber("Foo"))
}

func TestMonthOrder(t *testing.T) {
	assert.Equal(t, []string{"Dec", "Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov"}, MonthOrder)
}

func TestQuarterWindows_CoverYear(t *testing.T) {
	seen := make(map[string]int)
	for _, w := range QuarterWindows {
		for _, m := range w.Months {
			seen[m]++
		}
	}
	assert.Len(t, seen, 12)
	for _, shared := range []string{"Mar", "Jun", "Sep"} {
		assert.Equal(t, 2, seen[shared], shared)
	}
}
