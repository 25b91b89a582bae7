package funding

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Sample is one hourly funding settlement returned by the exchange.
// Rate is the decimal fraction of notional actually exchanged for the
// settlement period; it is the only field that may be summed. Rate8H is
// the rolling 8-hour rate Deribit quotes alongside each record, carried
// for display — summing it would count every payment ~8 times.
type Sample struct {
	Timestamp  time.Time       `json:"timestamp"`
	Rate       decimal.Decimal `json:"rate"`
	Rate8H     decimal.Decimal `json:"rate_8h"`
	Instrument string          `json:"instrument"`
}

// CumulativePoint pairs a sample with the running total of all funding
// up to and including it.
type CumulativePoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Rate      decimal.Decimal `json:"rate"`
	Rate8H    decimal.Decimal `json:"rate_8h"`
	Running   decimal.Decimal `json:"running"`
}

// MonthKey identifies a UTC calendar month.
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthOf returns the UTC calendar month containing t.
func MonthOf(t time.Time) MonthKey {
	u := t.UTC()
	return MonthKey{Year: u.Year(), Month: u.Month()}
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Start returns the first instant of the month in UTC.
func (k MonthKey) Start() time.Time {
	return time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the following calendar month.
func (k MonthKey) Next() MonthKey {
	if k.Month == time.December {
		return MonthKey{Year: k.Year + 1, Month: time.January}
	}
	return MonthKey{Year: k.Year, Month: k.Month + 1}
}

// MarshalJSON renders the month as "YYYY-MM".
func (k MonthKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON parses the "YYYY-MM" form.
func (k *MonthKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMonth(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Before reports whether k is chronologically before other.
func (k MonthKey) Before(other MonthKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}

// MonthlyTotal is the summed funding for one calendar month.
type MonthlyTotal struct {
	Month MonthKey        `json:"month"`
	Total decimal.Decimal `json:"total"`
}
