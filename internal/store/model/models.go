package model

import "gorm.io/datatypes"

// FundingSampleModel maps to 'funding_samples'. One row per hourly
// settlement per instrument; rates are stored as decimal strings to keep
// them exact. Rate is the settlement payment, Rate8h the quoted rolling
// rate shown on the chart.
type FundingSampleModel struct {
	ID         int64  `gorm:"column:id;primaryKey"`
	Instrument string `gorm:"column:instrument;uniqueIndex:idx_sample_instrument_ts"`
	Timestamp  int64  `gorm:"column:timestamp;uniqueIndex:idx_sample_instrument_ts"`
	Rate       string `gorm:"column:rate"`
	Rate8h     string `gorm:"column:rate_8h"`
	CreatedAt  int64  `gorm:"column:created_at;autoCreateTime:milli"`
}

func (FundingSampleModel) TableName() string { return "funding_samples" }

// MonthlyTotalModel maps to 'monthly_totals', the resampled view the bar
// chart is served from when the exchange is unreachable.
type MonthlyTotalModel struct {
	ID         int64          `gorm:"column:id;primaryKey"`
	Instrument string         `gorm:"column:instrument;uniqueIndex:idx_month_instrument"`
	Month      string         `gorm:"column:month;uniqueIndex:idx_month_instrument"` // YYYY-MM
	Total      string         `gorm:"column:total"`
	Meta       datatypes.JSON `gorm:"column:meta"`
	UpdatedAt  int64          `gorm:"column:updated_at;autoUpdateTime:milli"`
}

func (MonthlyTotalModel) TableName() string { return "monthly_totals" }

// RefreshMeta is serialized into MonthlyTotalModel.Meta.
type RefreshMeta struct {
	JobID       string `json:"job_id"`
	SampleCount int    `json:"sample_count"`
	WindowStart int64  `json:"window_start"`
	WindowEnd   int64  `json:"window_end"`
}
