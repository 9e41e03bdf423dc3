package github

import (
	"net/http"
	"testing"
	"time"
)

func TestRateBudget_UpdateFromHeaders(t *testing.T) {
	b := NewRateBudget()

	h := http.Header{}
	h.Set("x-ratelimit-remaining", "7")
	h.Set("x-ratelimit-limit", "30")
	h.Set("x-ratelimit-reset", "1700000000")
	b.UpdateFromHeaders(h)

	state := b.Snapshot()
	if state.Remaining != 7 || state.Total != 30 {
		t.Errorf("got %+v", state)
	}
	if state.ResetAt.Unix() != 1700000000 {
		t.Errorf("got reset %v", state.ResetAt)
	}
	if !state.Known() {
		t.Error("budget should be known after update")
	}
}

func TestRateBudget_IgnoresMissingHeaders(t *testing.T) {
	b := NewRateBudget()
	b.Update(10, 30, time.Now())

	b.UpdateFromHeaders(http.Header{}) // no rate-limit headers

	if state := b.Snapshot(); state.Remaining != 10 {
		t.Errorf("budget should be untouched, got %+v", state)
	}
}

func TestRateBudget_Stale(t *testing.T) {
	b := NewRateBudget()
	if !b.Stale(time.Minute) {
		t.Error("unpopulated budget must be stale")
	}

	current := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return current }
	b.Update(10, 30, current.Add(time.Hour))

	if b.Stale(time.Minute) {
		t.Error("fresh budget should not be stale")
	}

	current = current.Add(2 * time.Minute)
	if !b.Stale(time.Minute) {
		t.Error("budget older than maxAge should be stale")
	}
}
