package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestTaskWaitsForReadiness(t *testing.T) {
	ready := make(chan struct{})
	var runs atomic.Int64

	s := New(ready, Task{
		Name:     "counting",
		Interval: 5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	time.Sleep(30 * time.Millisecond)
	if got := runs.Load(); got != 0 {
		t.Fatalf("task ran %d times before readiness", got)
	}

	close(ready)
	deadline := time.Now().Add(time.Second)
	for runs.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("task never ran after readiness")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	s.Wait()
}

func TestTaskSurvivesFailures(t *testing.T) {
	ready := make(chan struct{})
	close(ready)

	var runs atomic.Int64
	s := New(ready, Task{
		Name:     "flaky",
		Interval: time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return errors.New("tick blew up")
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	deadline := time.Now().Add(time.Second)
	for runs.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("task stopped after failures: %d runs", runs.Load())
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	s.Wait()
}

func TestCancellationStopsAllTasks(t *testing.T) {
	ready := make(chan struct{})
	close(ready)

	var runs atomic.Int64
	tick := func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}

	s := New(ready,
		Task{Name: "one", Interval: time.Millisecond, Run: tick},
		Task{Name: "two", Interval: time.Millisecond, Run: tick},
	)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	deadline := time.Now().Add(time.Second)
	for runs.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("tasks never started")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after cancellation")
	}
}

func TestCancelledBeforeReadinessExitsCleanly(t *testing.T) {
	ready := make(chan struct{})

	s := New(ready, Task{
		Name:     "gated",
		Interval: time.Millisecond,
		Run: func(ctx context.Context) error {
			t.Error("task must not run")
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return for a task cancelled before readiness")
	}
}
