package scheduler

import (
	"context"
	"testing"
	"time"

	"go.uber.org/atomic"

	"github.com/i474232898/weather-now/internal/weather"
)

type fakeFetcher struct {
	calls   *atomic.Int32
	withNil *atomic.Int32
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: atomic.NewInt32(0), withNil: atomic.NewInt32(0)}
}

func (f *fakeFetcher) Fetch(ctx context.Context, coord *weather.Coordinate) <-chan weather.State {
	f.calls.Inc()
	if coord == nil {
		f.withNil.Inc()
	}
	ch := make(chan weather.State, 1)
	ch <- weather.StateSuccess
	close(ch)
	return ch
}

type staticLocation struct {
	coord *weather.Coordinate
}

func (s staticLocation) Coordinate() *weather.Coordinate { return s.coord }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestScheduler_Interval(t *testing.T) {
	f := newFakeFetcher()
	loc := staticLocation{coord: &weather.Coordinate{Latitude: 30.0444, Longitude: 31.2357}}

	s := New(f, loc, 20*time.Millisecond, "", nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer s.Stop()

	waitFor(t, func() bool { return f.calls.Load() >= 2 })

	if n := f.withNil.Load(); n != 0 {
		t.Errorf("expected coordinate on every call, %d were nil", n)
	}
}

func TestScheduler_NoLocationStillDelegates(t *testing.T) {
	f := newFakeFetcher()

	s := New(f, staticLocation{}, 20*time.Millisecond, "", nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer s.Stop()

	waitFor(t, func() bool { return f.withNil.Load() >= 1 })
}

func TestScheduler_InvalidCron(t *testing.T) {
	s := New(newFakeFetcher(), staticLocation{}, 0, "not a cron", nil)
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("expected error for invalid cron expression")
	}
}
