package search

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerOnlyLastCallRuns(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var ran atomic.Int32
	var last atomic.Int32
	for i := 1; i <= 5; i++ {
		i := int32(i)
		d.Do(context.Background(), func(ctx context.Context) {
			ran.Add(1)
			last.Store(i)
		})
		time.Sleep(5 * time.Millisecond) // within the quiet window
	}

	time.Sleep(100 * time.Millisecond)
	if ran.Load() != 1 {
		t.Errorf("expected exactly 1 call to run, got %d", ran.Load())
	}
	if last.Load() != 5 {
		t.Errorf("expected the last scheduled call to run, got call %d", last.Load())
	}
}

func TestDebouncerCancelsSupersededCall(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	defer d.Stop()

	cancelled := make(chan struct{})
	started := make(chan struct{})
	d.Do(context.Background(), func(ctx context.Context) {
		close(started)
		select {
		case <-ctx.Done():
			close(cancelled)
		case <-time.After(time.Second):
		}
	})

	<-started
	// Superseding while the first call is running cancels its context.
	d.Do(context.Background(), func(ctx context.Context) {})

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("superseded call's context was not cancelled")
	}
}

func TestDebouncerStop(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var ran atomic.Int32
	d.Do(context.Background(), func(ctx context.Context) { ran.Add(1) })
	d.Stop()

	time.Sleep(60 * time.Millisecond)
	if ran.Load() != 0 {
		t.Errorf("expected pending call discarded by Stop, got %d runs", ran.Load())
	}
}
