package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseISODate(t *testing.T) {
	_, err := ParseISODate("2025-01-31")
	assert.NoError(t, err)

	for _, raw := range []string{"", "2025-1-31", "2025-02-30", "31-01-2025", "2025-01-31T00:00:00Z"} {
		_, err := ParseISODate(raw)
		assert.Error(t, err, raw)
	}
}

func TestParseDateRange(t *testing.T) {
	s, e, err := ParseDateRange("2025-01-01", "2025-01-05")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", s.Format(ISODate))
	assert.Equal(t, "2025-01-05", e.Format(ISODate))

	_, _, err = ParseDateRange("2025-01-05", "2025-01-01")
	assert.Error(t, err)

	_, _, err = ParseDateRange("2025-01-01", "2025-01-01")
	assert.Error(t, err, "single-day ranges are empty under [start, end)")
}

func TestSplitWindowsShortRangeIsSingleWindow(t *testing.T) {
	wins := SplitWindows("2025-01-01", "2025-02-01", 90)
	require.Len(t, wins, 1)
	assert.Equal(t, Window{Start: "2025-01-01", End: "2025-02-01"}, wins[0])
}

func TestSplitWindowsLongRange(t *testing.T) {
	// 200 days split at 90: 90 + 90 + 20.
	wins := SplitWindows("2025-01-01", "2025-07-20", 90)
	require.Len(t, wins, 3)

	assert.Equal(t, Window{Start: "2025-01-01", End: "2025-04-01"}, wins[0])
	assert.Equal(t, Window{Start: "2025-04-01", End: "2025-06-30"}, wins[1])
	assert.Equal(t, Window{Start: "2025-06-30", End: "2025-07-20"}, wins[2])

	// Windows chain without gaps or overlap.
	for i := 1; i < len(wins); i++ {
		assert.Equal(t, wins[i-1].End, wins[i].Start)
	}
}

func TestSplitWindowsInvalidRange(t *testing.T) {
	assert.Nil(t, SplitWindows("2025-01-05", "2025-01-01", 90))
}

func TestDatesBetween(t *testing.T) {
	s, e, err := ParseDateRange("2025-02-27", "2025-03-02")
	require.NoError(t, err)

	dates := DatesBetween(s, e)
	assert.Equal(t, []string{"2025-02-27", "2025-02-28", "2025-03-01"}, dates)
}
