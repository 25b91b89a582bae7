package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"

	"fundview/internal/funding"
	"fundview/internal/store/model"
)

// ReplaceSamples upserts a fetched funding run for one instrument.
func (s *SnapshotStore) ReplaceSamples(ctx context.Context, samples []funding.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	rows := make([]model.FundingSampleModel, 0, len(samples))
	for _, sample := range samples {
		rows = append(rows, model.FundingSampleModel{
			Instrument: sample.Instrument,
			Timestamp:  sample.Timestamp.UnixMilli(),
			Rate:       sample.Rate.String(),
			Rate8h:     sample.Rate8H.String(),
		})
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "instrument"}, {Name: "timestamp"}},
		DoUpdates: clause.AssignmentColumns([]string{"rate", "rate_8h"}),
	}).CreateInBatches(rows, 500).Error
}

// ListSamples returns the stored run for instrument in chronological order.
func (s *SnapshotStore) ListSamples(ctx context.Context, instrument string) ([]funding.Sample, error) {
	var rows []model.FundingSampleModel
	err := s.db.WithContext(ctx).
		Where("instrument = ?", instrument).
		Order("timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	samples := make([]funding.Sample, 0, len(rows))
	for _, row := range rows {
		rate, err := decimal.NewFromString(row.Rate)
		if err != nil {
			return nil, fmt.Errorf("corrupt rate %q for %s@%d: %w", row.Rate, row.Instrument, row.Timestamp, err)
		}
		rate8h := decimal.Zero
		if row.Rate8h != "" {
			rate8h, err = decimal.NewFromString(row.Rate8h)
			if err != nil {
				return nil, fmt.Errorf("corrupt rate_8h %q for %s@%d: %w", row.Rate8h, row.Instrument, row.Timestamp, err)
			}
		}
		samples = append(samples, funding.Sample{
			Timestamp:  time.UnixMilli(row.Timestamp).UTC(),
			Rate:       rate,
			Rate8H:     rate8h,
			Instrument: row.Instrument,
		})
	}
	return samples, nil
}

// ReplaceMonthlyTotals upserts the resampled monthly view.
func (s *SnapshotStore) ReplaceMonthlyTotals(ctx context.Context, instrument string, months []funding.MonthlyTotal, meta model.RefreshMeta) error {
	if len(months) == 0 {
		return nil
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	rows := make([]model.MonthlyTotalModel, 0, len(months))
	for _, m := range months {
		rows = append(rows, model.MonthlyTotalModel{
			Instrument: instrument,
			Month:      m.Month.String(),
			Total:      m.Total.String(),
			Meta:       metaJSON,
		})
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "instrument"}, {Name: "month"}},
		DoUpdates: clause.AssignmentColumns([]string{"total", "meta", "updated_at"}),
	}).CreateInBatches(rows, 500).Error
}

// ListMonthlyTotals returns the stored monthly view in month order.
func (s *SnapshotStore) ListMonthlyTotals(ctx context.Context, instrument string) ([]funding.MonthlyTotal, error) {
	var rows []model.MonthlyTotalModel
	err := s.db.WithContext(ctx).
		Where("instrument = ?", instrument).
		Order("month ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	months := make([]funding.MonthlyTotal, 0, len(rows))
	for _, row := range rows {
		key, err := funding.ParseMonth(row.Month)
		if err != nil {
			return nil, err
		}
		total, err := decimal.NewFromString(row.Total)
		if err != nil {
			return nil, fmt.Errorf("corrupt total %q for %s %s: %w", row.Total, row.Instrument, row.Month, err)
		}
		months = append(months, funding.MonthlyTotal{Month: key, Total: total})
	}
	return months, nil
}
