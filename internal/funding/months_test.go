package funding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonth(t *testing.T) {
	key, err := ParseMonth("2019-05")
	require.NoError(t, err)
	assert.Equal(t, MonthKey{Year: 2019, Month: time.May}, key)

	for _, bad := range []string{"", "2019", "2019-13", "2019-00", "may-2019"} {
		_, err := ParseMonth(bad)
		assert.Error(t, err, "label %q should not parse", bad)
	}
}

func TestMonthKeyNextWrapsYear(t *testing.T) {
	key := MonthKey{Year: 2023, Month: time.December}
	assert.Equal(t, MonthKey{Year: 2024, Month: time.January}, key.Next())
}

func TestMonthWindows(t *testing.T) {
	oldest := MonthKey{Year: 2023, Month: time.November}
	now := time.Date(2024, 2, 14, 9, 0, 0, 0, time.UTC)

	windows := MonthWindows(oldest, now)
	require.Len(t, windows, 4) // Nov, Dec, Jan, Feb

	first := windows[0]
	assert.Equal(t, "2023-11", first.Month.String())
	assert.Equal(t, time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), first.StartMs)
	// end is the last millisecond before the next month
	assert.Equal(t, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC).UnixMilli()-1, first.EndMs)

	// windows tile without gaps or overlap
	for i := 1; i < len(windows); i++ {
		assert.Equal(t, windows[i-1].EndMs+1, windows[i].StartMs)
	}
}

func TestMonthWindowsOldestInFuture(t *testing.T) {
	oldest := MonthKey{Year: 2030, Month: time.January}
	assert.Empty(t, MonthWindows(oldest, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
}
