package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"fundview/internal/funding"
	"fundview/internal/logger"
	"fundview/internal/store/fetchlog"
	"fundview/internal/store/model"
)

// ExchangeClient is the exchange surface the service depends on.
type ExchangeClient interface {
	FundingRateHistory(ctx context.Context, instrument string, startMs, endMs int64) ([]funding.Sample, error)
}

// SnapshotRepo persists fetched series between runs.
type SnapshotRepo interface {
	ReplaceSamples(ctx context.Context, samples []funding.Sample) error
	ListSamples(ctx context.Context, instrument string) ([]funding.Sample, error)
	ReplaceMonthlyTotals(ctx context.Context, instrument string, months []funding.MonthlyTotal, meta model.RefreshMeta) error
	ListMonthlyTotals(ctx context.Context, instrument string) ([]funding.MonthlyTotal, error)
}

// AuditLog records fetch attempts.
type AuditLog interface {
	Append(ctx context.Context, rec fetchlog.Record) (string, error)
}

// Snapshot is everything the presenter needs for one instrument.
type Snapshot struct {
	Instrument string                    `json:"instrument"`
	FetchedAt  time.Time                 `json:"fetched_at"`
	Points     []funding.CumulativePoint `json:"points"`
	Months     []funding.MonthlyTotal    `json:"months"`
	Stats      funding.Stats             `json:"stats"`
	FromCache  bool                      `json:"from_cache"`
}

// FundingService drives the fetch -> aggregate -> store pipeline and serves
// the derived series to the HTTP layer.
type FundingService struct {
	client ExchangeClient
	repo   SnapshotRepo
	audit  AuditLog
	oldest funding.MonthKey
	now    func() time.Time

	mu    sync.RWMutex
	cache map[string]Snapshot
}

func New(client ExchangeClient, repo SnapshotRepo, audit AuditLog, oldest funding.MonthKey) *FundingService {
	return &FundingService{
		client: client,
		repo:   repo,
		audit:  audit,
		oldest: oldest,
		now:    time.Now,
		cache:  make(map[string]Snapshot),
	}
}

// Refresh pulls the full funding history for instrument and rebuilds both
// derived series from scratch.
func (s *FundingService) Refresh(ctx context.Context, instrument string) (Snapshot, error) {
	instrument = strings.TrimSpace(instrument)
	if instrument == "" {
		return Snapshot{}, fmt.Errorf("instrument is required")
	}
	now := s.now().UTC()
	startMs := s.oldest.Start().UnixMilli()
	endMs := now.UnixMilli()

	began := time.Now()
	samples, err := s.client.FundingRateHistory(ctx, instrument, startMs, endMs)
	duration := time.Since(began)

	if err != nil {
		s.appendAudit(ctx, fetchlog.Record{
			Instrument: instrument,
			StartMs:    startMs,
			EndMs:      endMs,
			Status:     "error",
			Error:      err.Error(),
			DurationMs: duration.Milliseconds(),
		})
		return Snapshot{}, fmt.Errorf("refresh %s: %w", instrument, err)
	}

	jobID := s.appendAudit(ctx, fetchlog.Record{
		Instrument: instrument,
		StartMs:    startMs,
		EndMs:      endMs,
		Samples:    len(samples),
		Status:     "ok",
		DurationMs: duration.Milliseconds(),
	})

	snap := buildSnapshot(instrument, samples, now)

	if s.repo != nil && len(samples) > 0 {
		if err := s.repo.ReplaceSamples(ctx, samples); err != nil {
			logger.Errorf("[service] persist samples %s: %v", instrument, err)
		}
		meta := model.RefreshMeta{
			JobID:       jobID,
			SampleCount: len(samples),
			WindowStart: startMs,
			WindowEnd:   endMs,
		}
		if err := s.repo.ReplaceMonthlyTotals(ctx, instrument, snap.Months, meta); err != nil {
			logger.Errorf("[service] persist monthly totals %s: %v", instrument, err)
		}
	}

	s.mu.Lock()
	s.cache[instrument] = snap
	s.mu.Unlock()

	logger.Infof("[service] refreshed %s: %d samples, %d months in %s", instrument, len(samples), len(snap.Months), duration)
	return snap, nil
}

// Snapshot returns the in-memory series for instrument, falling back to the
// persisted snapshot when the process has not fetched yet. An empty snapshot
// (never fetched, nothing stored) is returned with ok=false.
func (s *FundingService) Snapshot(ctx context.Context, instrument string) (Snapshot, bool) {
	instrument = strings.TrimSpace(instrument)
	s.mu.RLock()
	snap, hit := s.cache[instrument]
	s.mu.RUnlock()
	if hit {
		return snap, true
	}
	if s.repo == nil {
		return Snapshot{Instrument: instrument}, false
	}
	samples, err := s.repo.ListSamples(ctx, instrument)
	if err != nil {
		logger.Errorf("[service] load stored samples %s: %v", instrument, err)
		return Snapshot{Instrument: instrument}, false
	}
	if len(samples) == 0 {
		return Snapshot{Instrument: instrument}, false
	}
	snap = buildSnapshot(instrument, samples, time.UnixMilli(0).UTC())
	snap.FromCache = true

	s.mu.Lock()
	s.cache[instrument] = snap
	s.mu.Unlock()
	return snap, true
}

// Invalidate drops the cached series, forcing the next read through the
// store. Used when the instrument catalog reloads.
func (s *FundingService) Invalidate() {
	s.mu.Lock()
	s.cache = make(map[string]Snapshot)
	s.mu.Unlock()
}

func (s *FundingService) appendAudit(ctx context.Context, rec fetchlog.Record) string {
	if s.audit == nil {
		return ""
	}
	jobID, err := s.audit.Append(ctx, rec)
	if err != nil {
		logger.Errorf("[service] fetch audit append failed: %v", err)
		return ""
	}
	return jobID
}

func buildSnapshot(instrument string, samples []funding.Sample, fetchedAt time.Time) Snapshot {
	months := funding.Monthly(samples)
	return Snapshot{
		Instrument: instrument,
		FetchedAt:  fetchedAt,
		Points:     funding.Cumulate(samples),
		Months:     months,
		Stats:      funding.Summarize(months),
	}
}
