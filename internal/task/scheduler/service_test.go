package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	logx "animebot/pkg/logx"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRunImmediatelyFiresOnStart(t *testing.T) {
	s := New(Config{}, logx.Nop())
	var runs atomic.Int32
	err := s.AddSchedule("poll", "@every 1h", time.Second, func(context.Context) error {
		runs.Add(1)
		return nil
	}, RunImmediately())
	if err != nil {
		t.Fatalf("AddSchedule: %v", err)
	}
	if s.Snapshot().Running {
		t.Fatal("Running before Start")
	}

	s.Start(context.Background())
	defer s.Stop(context.Background())

	waitFor(t, "immediate run", func() bool { return runs.Load() == 1 })
	info, ok := s.Snapshot().Find("poll")
	next := info.Next
	if !ok || next.IsZero() || time.Until(next) < 59*time.Minute {
		t.Fatalf("Next = %v, want about an hour ahead", next)
	}
}

func TestWithoutImmediateWaitsForTick(t *testing.T) {
	s := New(Config{}, logx.Nop())
	var runs atomic.Int32
	if err := s.AddSchedule("poll", "1h", 0, func(context.Context) error {
		runs.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("AddSchedule: %v", err)
	}
	s.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	s.Stop(context.Background())
	if runs.Load() != 0 {
		t.Fatalf("runs = %d, want 0", runs.Load())
	}
}

func TestStopCancelsRunningJob(t *testing.T) {
	s := New(Config{}, logx.Nop())
	started := make(chan struct{})
	var cancelled atomic.Bool
	err := s.AddSchedule("slow", "@every 1h", 0, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}, RunImmediately())
	if err != nil {
		t.Fatalf("AddSchedule: %v", err)
	}
	s.Start(context.Background())
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Stop(ctx)
	if !cancelled.Load() {
		t.Fatal("job context was not cancelled by Stop")
	}
	if s.Snapshot().Running {
		t.Fatal("Running after Stop")
	}
}

func TestJobTimeout(t *testing.T) {
	s := New(Config{}, logx.Nop())
	got := make(chan error, 1)
	err := s.AddSchedule("bounded", "@every 1h", 20*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		got <- ctx.Err()
		return ctx.Err()
	}, RunImmediately())
	if err != nil {
		t.Fatalf("AddSchedule: %v", err)
	}
	s.Start(context.Background())
	defer s.Stop(context.Background())

	select {
	case err := <-got:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("ctx err = %v, want deadline exceeded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job never saw its deadline")
	}
}

func TestAddScheduleValidation(t *testing.T) {
	s := New(Config{}, logx.Nop())
	job := func(context.Context) error { return nil }
	if err := s.AddSchedule("", "10m", 0, job); err == nil {
		t.Fatal("expected error for empty name")
	}
	if err := s.AddSchedule("x", "whenever", 0, job); err == nil {
		t.Fatal("expected error for bad schedule")
	}
	if err := s.AddSchedule("x", "@every nope", 0, job); err == nil {
		t.Fatal("expected cron parser to reject the descriptor")
	}
	if err := s.AddSchedule("x", "10m", 0, nil); err == nil {
		t.Fatal("expected error for nil job")
	}
}

func TestAddScheduleReplacesByName(t *testing.T) {
	s := New(Config{Timezone: "UTC"}, logx.Nop())
	job := func(context.Context) error { return nil }
	if err := s.AddSchedule("poll", "10m", 0, job); err != nil {
		t.Fatal(err)
	}
	if err := s.AddSchedule("poll", "5m", 0, job); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if len(snap.Schedules) != 1 || snap.Schedules[0].Spec != "@every 5m0s" {
		t.Fatalf("schedules = %+v", snap.Schedules)
	}
	if snap.Timezone != "UTC" || snap.Running {
		t.Fatalf("snapshot = %+v", snap)
	}
	if _, ok := snap.Find("missing"); ok {
		t.Fatal("Find reported an unknown schedule")
	}
}
