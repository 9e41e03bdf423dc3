package github

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// BudgetState is a point-in-time snapshot of the rate-limit budget.
type BudgetState struct {
	Remaining   int
	Total       int
	ResetAt     time.Time
	LastChecked time.Time
}

// Known reports whether the budget has been populated at least once.
func (s BudgetState) Known() bool { return !s.LastChecked.IsZero() }

// RateBudget tracks the remote rate-limit budget, refreshed opportunistically
// from API response headers or an explicit probe. It is transient state:
// never persisted, shared by every caller holding the same Client.
//
// RateBudget is safe for concurrent use. Duplicate concurrent probes are
// merely wasteful, not unsafe, so no single-flight guard is applied here.
type RateBudget struct {
	mu          sync.Mutex
	remaining   int
	total       int
	resetAt     time.Time
	lastChecked time.Time

	// now is injectable for tests.
	now func() time.Time
}

// NewRateBudget creates an empty budget.
func NewRateBudget() *RateBudget {
	return &RateBudget{now: time.Now}
}

// Update records a fresh budget observation.
func (b *RateBudget) Update(remaining, total int, resetAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remaining = remaining
	b.total = total
	b.resetAt = resetAt
	b.lastChecked = b.now()
}

// UpdateFromHeaders records the budget carried on an API response.
// Responses without rate-limit headers leave the budget untouched.
func (b *RateBudget) UpdateFromHeaders(h http.Header) {
	remaining, err := strconv.Atoi(h.Get("x-ratelimit-remaining"))
	if err != nil {
		return
	}
	total, _ := strconv.Atoi(h.Get("x-ratelimit-limit"))

	var resetAt time.Time
	if sec, err := strconv.ParseInt(h.Get("x-ratelimit-reset"), 10, 64); err == nil {
		resetAt = time.Unix(sec, 0)
	}
	b.Update(remaining, total, resetAt)
}

// Snapshot returns the current budget state.
func (b *RateBudget) Snapshot() BudgetState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BudgetState{
		Remaining:   b.remaining,
		Total:       b.total,
		ResetAt:     b.resetAt,
		LastChecked: b.lastChecked,
	}
}

// Stale reports whether the last observation is older than maxAge, or the
// budget has never been populated.
func (b *RateBudget) Stale(maxAge time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastChecked.IsZero() {
		return true
	}
	return b.now().Sub(b.lastChecked) > maxAge
}
