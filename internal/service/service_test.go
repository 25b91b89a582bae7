package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fundview/internal/funding"
	"fundview/internal/store/fetchlog"
	"fundview/internal/store/model"
)

type MockExchange struct {
	mock.Mock
}

func (m *MockExchange) FundingRateHistory(ctx context.Context, instrument string, startMs, endMs int64) ([]funding.Sample, error) {
	args := m.Called(ctx, instrument, startMs, endMs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]funding.Sample), args.Error(1)
}

type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) ReplaceSamples(ctx context.Context, samples []funding.Sample) error {
	return m.Called(ctx, samples).Error(0)
}

func (m *MockRepo) ListSamples(ctx context.Context, instrument string) ([]funding.Sample, error) {
	args := m.Called(ctx, instrument)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]funding.Sample), args.Error(1)
}

func (m *MockRepo) ReplaceMonthlyTotals(ctx context.Context, instrument string, months []funding.MonthlyTotal, meta model.RefreshMeta) error {
	return m.Called(ctx, instrument, months, meta).Error(0)
}

func (m *MockRepo) ListMonthlyTotals(ctx context.Context, instrument string) ([]funding.MonthlyTotal, error) {
	args := m.Called(ctx, instrument)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]funding.MonthlyTotal), args.Error(1)
}

type MockAudit struct {
	mock.Mock
}

func (m *MockAudit) Append(ctx context.Context, rec fetchlog.Record) (string, error) {
	args := m.Called(ctx, rec)
	return args.String(0), args.Error(1)
}

func fixedSamples() []funding.Sample {
	return []funding.Sample{
		{
			Timestamp:  time.Date(2023, 1, 15, 8, 0, 0, 0, time.UTC),
			Rate:       decimal.RequireFromString("0.0001"),
			Rate8H:     decimal.RequireFromString("0.0008"),
			Instrument: "BTC-PERPETUAL",
		},
		{
			Timestamp:  time.Date(2023, 2, 1, 8, 0, 0, 0, time.UTC),
			Rate:       decimal.RequireFromString("0.0003"),
			Rate8H:     decimal.RequireFromString("0.0024"),
			Instrument: "BTC-PERPETUAL",
		},
	}
}

func newService(client ExchangeClient, repo SnapshotRepo, audit AuditLog) *FundingService {
	svc := New(client, repo, audit, funding.MonthKey{Year: 2019, Month: time.May})
	svc.now = func() time.Time { return time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestRefresh(t *testing.T) {
	client := new(MockExchange)
	repo := new(MockRepo)
	audit := new(MockAudit)

	client.On("FundingRateHistory", mock.Anything, "BTC-PERPETUAL", mock.Anything, mock.Anything).
		Return(fixedSamples(), nil)
	repo.On("ReplaceSamples", mock.Anything, mock.Anything).Return(nil)
	repo.On("ReplaceMonthlyTotals", mock.Anything, "BTC-PERPETUAL", mock.Anything, mock.Anything).Return(nil)
	audit.On("Append", mock.Anything, mock.MatchedBy(func(rec fetchlog.Record) bool {
		return rec.Status == "ok" && rec.Samples == 2
	})).Return("job-1", nil)

	svc := newService(client, repo, audit)
	snap, err := svc.Refresh(context.Background(), "BTC-PERPETUAL")
	require.NoError(t, err)

	require.Len(t, snap.Points, 2)
	assert.True(t, snap.Points[1].Running.Equal(decimal.RequireFromString("0.0004")))
	require.Len(t, snap.Months, 2)
	assert.True(t, snap.Stats.AllTime.Equal(decimal.RequireFromString("0.0004")))
	assert.False(t, snap.FromCache)

	repo.AssertExpectations(t)
	audit.AssertExpectations(t)

	// refresh window starts at the configured oldest month
	call := client.Calls[0]
	assert.Equal(t, time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), call.Arguments.Get(2).(int64))
}

func TestRefreshExchangeError(t *testing.T) {
	client := new(MockExchange)
	audit := new(MockAudit)

	client.On("FundingRateHistory", mock.Anything, "BTC-PERPETUAL", mock.Anything, mock.Anything).
		Return(nil, assert.AnError)
	audit.On("Append", mock.Anything, mock.MatchedBy(func(rec fetchlog.Record) bool {
		return rec.Status == "error" && rec.Error != ""
	})).Return("job-2", nil)

	svc := newService(client, nil, audit)
	_, err := svc.Refresh(context.Background(), "BTC-PERPETUAL")
	require.Error(t, err)
	audit.AssertExpectations(t)

	// failed refresh leaves no cached snapshot
	_, ok := svc.Snapshot(context.Background(), "BTC-PERPETUAL")
	assert.False(t, ok)
}

func TestRefreshEmptyHistory(t *testing.T) {
	client := new(MockExchange)
	audit := new(MockAudit)
	client.On("FundingRateHistory", mock.Anything, "NEW-PERPETUAL", mock.Anything, mock.Anything).
		Return([]funding.Sample{}, nil)
	audit.On("Append", mock.Anything, mock.Anything).Return("job-3", nil)

	svc := newService(client, nil, audit)
	snap, err := svc.Refresh(context.Background(), "NEW-PERPETUAL")
	require.NoError(t, err)
	assert.Empty(t, snap.Points)
	assert.Empty(t, snap.Months)
	assert.True(t, snap.Stats.AllTime.IsZero())
}

func TestSnapshotFallsBackToStore(t *testing.T) {
	repo := new(MockRepo)
	repo.On("ListSamples", mock.Anything, "BTC-PERPETUAL").Return(fixedSamples(), nil)

	svc := newService(new(MockExchange), repo, nil)
	snap, ok := svc.Snapshot(context.Background(), "BTC-PERPETUAL")
	require.True(t, ok)
	assert.True(t, snap.FromCache)
	assert.Len(t, snap.Points, 2)

	// second read is served from memory
	_, ok = svc.Snapshot(context.Background(), "BTC-PERPETUAL")
	assert.True(t, ok)
	repo.AssertNumberOfCalls(t, "ListSamples", 1)
}

func TestSnapshotMissingEverywhere(t *testing.T) {
	repo := new(MockRepo)
	repo.On("ListSamples", mock.Anything, "ETH-PERPETUAL").Return([]funding.Sample{}, nil)

	svc := newService(new(MockExchange), repo, nil)
	snap, ok := svc.Snapshot(context.Background(), "ETH-PERPETUAL")
	assert.False(t, ok)
	assert.Empty(t, snap.Points)
}

func TestInvalidate(t *testing.T) {
	repo := new(MockRepo)
	repo.On("ListSamples", mock.Anything, "BTC-PERPETUAL").Return(fixedSamples(), nil)

	svc := newService(new(MockExchange), repo, nil)
	_, ok := svc.Snapshot(context.Background(), "BTC-PERPETUAL")
	require.True(t, ok)

	svc.Invalidate()
	_, ok = svc.Snapshot(context.Background(), "BTC-PERPETUAL")
	require.True(t, ok)
	repo.AssertNumberOfCalls(t, "ListSamples", 2)
}
