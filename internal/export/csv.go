package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"fundview/internal/funding"
	"fundview/internal/logger"
)

// ValueFetcher is the one exchange call the exporter needs.
type ValueFetcher interface {
	FundingRateValue(ctx context.Context, instrument string, startMs, endMs int64) (decimal.Decimal, error)
}

// MonthlyCSV writes a wide CSV: one row per month, one column per
// instrument. Cells the exchange cannot answer (pre-listing months, delisted
// contracts) are written as zero so the sheet stays rectangular.
type MonthlyCSV struct {
	client ValueFetcher
}

func NewMonthlyCSV(client ValueFetcher) *MonthlyCSV {
	return &MonthlyCSV{client: client}
}

// Write streams rows for every whole month from 'from' through 'to'
// inclusive.
func (e *MonthlyCSV) Write(ctx context.Context, w io.Writer, instruments []string, from, to funding.MonthKey) error {
	cleaned := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		if name := strings.TrimSpace(inst); name != "" {
			cleaned = append(cleaned, name)
		}
	}
	if len(cleaned) == 0 {
		return fmt.Errorf("no instruments to export")
	}
	if to.Before(from) {
		return fmt.Errorf("export range inverted: %s after %s", from, to)
	}

	cw := csv.NewWriter(w)
	header := append([]string{"month", "start_timestamp_ms", "end_timestamp_ms"}, cleaned...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for key := from; !to.Before(key); key = key.Next() {
		startMs := key.Start().UnixMilli()
		endMs := key.Next().Start().UnixMilli() - 1

		row := make([]string, 0, len(header))
		row = append(row,
			key.String(),
			strconv.FormatInt(startMs, 10),
			strconv.FormatInt(endMs, 10),
		)
		for _, inst := range cleaned {
			value, err := e.client.FundingRateValue(ctx, inst, startMs, endMs)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warnf("[export] %s %s: %v, writing zero", inst, key, err)
				value = decimal.Zero
			}
			row = append(row, value.String())
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
