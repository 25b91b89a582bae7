package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntervalDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"1h", time.Hour, true},
		{"8h", 8 * time.Hour, true},
		{"15m", 15 * time.Minute, true},
		{"1d", 24 * time.Hour, true},
		{"1w", 7 * 24 * time.Hour, true},
		{" 4H ", 4 * time.Hour, true},
		{"", 0, false},
		{"h", 0, false},
		{"0h", 0, false},
		{"-1h", 0, false},
		{"10s", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseIntervalDuration(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestNextTimesAlignsToBoundary(t *testing.T) {
	s := NewAlignedScheduler(context.Background(), time.Hour, 30*time.Second)
	now := time.Date(2023, 3, 1, 10, 42, 11, 0, time.UTC)

	boundary, wakeAt, wait := s.nextTimes(now)
	assert.Equal(t, time.Date(2023, 3, 1, 11, 0, 0, 0, time.UTC), boundary)
	assert.Equal(t, boundary.Add(30*time.Second), wakeAt)
	assert.Equal(t, wakeAt.Sub(now), wait)
}

func TestStartRunImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewAlignedScheduler(ctx, time.Hour, 0)
	s.RunImmediately = true

	ran := make(chan struct{}, 1)
	go s.Start(func() {
		select {
		case ran <- struct{}{}:
		default:
		}
		cancel()
	})

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("immediate run never fired")
	}
}

func TestStartRejectsBadConfig(t *testing.T) {
	done := make(chan struct{})
	go func() {
		NewAlignedScheduler(context.Background(), 0, 0).Start(func() {})
		var s *AlignedScheduler
		s.Start(func() {})
		NewAlignedScheduler(context.Background(), time.Hour, 0).Start(nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.Fail(t, "scheduler with invalid config did not return")
	}
}
