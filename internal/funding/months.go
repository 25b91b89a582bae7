package funding

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Window is a [Start, End] month span in epoch milliseconds, End being the
// last millisecond of the month. Deribit treats end_timestamp as inclusive.
type Window struct {
	Month   MonthKey
	StartMs int64
	EndMs   int64
}

// ParseMonth parses a YYYY-MM label.
func ParseMonth(label string) (MonthKey, error) {
	parts := strings.SplitN(strings.TrimSpace(label), "-", 2)
	if len(parts) != 2 {
		return MonthKey{}, fmt.Errorf("invalid month %q, expected YYYY-MM", label)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return MonthKey{}, fmt.Errorf("invalid month %q: %w", label, err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return MonthKey{}, fmt.Errorf("invalid month %q, expected YYYY-MM", label)
	}
	return MonthKey{Year: year, Month: time.Month(month)}, nil
}

// MonthWindows enumerates whole-month windows from oldest up to and
// including the month containing now.
func MonthWindows(oldest MonthKey, now time.Time) []Window {
	last := MonthOf(now)
	if last.Before(oldest) {
		return nil
	}
	var windows []Window
	for key := oldest; !last.Before(key); key = key.Next() {
		start := key.Start()
		end := key.Next().Start()
		windows = append(windows, Window{
			Month:   key,
			StartMs: start.UnixMilli(),
			EndMs:   end.UnixMilli() - 1,
		})
	}
	return windows
}
