// Package token manages OAuth provider tokens for API calls.
//
// The Manager hands out a valid access token on demand, refreshing it
// transparently when it is close to expiry. Refreshes are collapsed with
// singleflight so that any number of concurrent callers holding an expired
// token produce exactly one refresh request against the provider; every
// caller receives the outcome of that one request.
package token

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sourcingdenis/devfinder/pkg/errors"
	"github.com/sourcingdenis/devfinder/pkg/github"
	"github.com/sourcingdenis/devfinder/pkg/store"
)

// ExpiryBuffer is how long before the recorded expiry a token is treated
// as expired. Refreshing early avoids races where a token passes the local
// check but is rejected by the provider moments later.
const ExpiryBuffer = 5 * time.Minute

// Refresher exchanges a refresh token for a fresh access token.
// *github.OAuthClient satisfies this interface.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*github.OAuthToken, error)
}

// Manager provides valid access tokens for a single (user, provider) pair.
// It implements github.TokenSource and is safe for concurrent use.
type Manager struct {
	userID   string
	provider string
	store    store.TokenStore
	refresh  Refresher

	mu     sync.RWMutex
	cached *store.TokenRecord

	group singleflight.Group

	// now is overridable for tests.
	now func() time.Time

	// onExpired is invoked once per terminal refresh failure, outside
	// the manager's lock. Used to trigger sign-out flows.
	onExpired func()
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the manager's time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithExpiredCallback registers a callback invoked when a refresh fails
// terminally and the user must re-authenticate.
func WithExpiredCallback(fn func()) Option {
	return func(m *Manager) { m.onExpired = fn }
}

// NewManager creates a token manager for the given user and provider.
func NewManager(userID, provider string, st store.TokenStore, refresh Refresher, opts ...Option) *Manager {
	m := &Manager{
		userID:   userID,
		provider: provider,
		store:    st,
		refresh:  refresh,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Token returns a valid access token, refreshing it first if the cached
// token expires within ExpiryBuffer. Concurrent callers during a refresh
// share a single provider request.
//
// When the refresh fails terminally (the refresh token itself is rejected),
// the stored token is removed and an AUTH_EXPIRED error is returned; the
// caller must re-run the sign-in flow.
func (m *Manager) Token(ctx context.Context) (string, error) {
	if tok, ok := m.validCached(); ok {
		return tok, nil
	}

	v, err, _ := m.group.Do("refresh", func() (any, error) {
		// A concurrent caller may have refreshed while we waited on
		// the group; the re-check makes queued callers reuse it.
		if tok, ok := m.validCached(); ok {
			return tok, nil
		}
		return m.refreshLocked(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// SetToken records a freshly issued token, persisting it and priming the
// in-memory cache. Called after interactive sign-in.
func (m *Manager) SetToken(ctx context.Context, tok *github.OAuthToken) error {
	rec := m.record(tok)
	if err := m.store.Put(ctx, rec); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to persist token")
	}
	m.mu.Lock()
	m.cached = rec
	m.mu.Unlock()
	return nil
}

// Clear drops the cached and persisted token. Used on sign-out.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.cached = nil
	m.mu.Unlock()
	return m.store.Delete(ctx, m.userID, m.provider)
}

// validCached returns the cached access token if it is usable past the
// expiry buffer.
func (m *Manager) validCached() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cached == nil || m.cached.AccessToken == "" {
		return "", false
	}
	if m.usable(m.cached) {
		return m.cached.AccessToken, true
	}
	return "", false
}

// usable reports whether a token record is valid past the expiry buffer.
// Records without an expiry are treated as non-expiring.
func (m *Manager) usable(rec *store.TokenRecord) bool {
	if rec.ExpiresAt.IsZero() {
		return true
	}
	return m.now().Add(ExpiryBuffer).Before(rec.ExpiresAt)
}

// refreshLocked loads the persisted token and refreshes it if needed.
// Runs inside the singleflight group, so at most one execution at a time.
func (m *Manager) refreshLocked(ctx context.Context) (string, error) {
	rec, err := m.store.Get(ctx, m.userID, m.provider)
	if err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			return "", m.expired(errors.New(errors.ErrCodeAuthExpired, "no stored token; sign in required"))
		}
		return "", errors.Wrap(errors.ErrCodeInternal, err, "failed to load stored token")
	}

	// Another process may have refreshed the persisted token already.
	if m.usable(rec) {
		m.mu.Lock()
		m.cached = rec
		m.mu.Unlock()
		return rec.AccessToken, nil
	}

	if rec.RefreshToken == "" {
		return "", m.expired(errors.New(errors.ErrCodeAuthExpired, "token expired and no refresh token available"))
	}

	tok, err := m.refresh.Refresh(ctx, rec.RefreshToken)
	if err != nil {
		if errors.Is(err, errors.ErrCodeNetwork) || errors.Is(err, errors.ErrCodeTimeout) {
			// Transient failure: the refresh token may still be good.
			return "", err
		}
		return "", m.expired(&errors.AuthExpiredError{Cause: err})
	}

	fresh := m.record(tok)
	if err := m.store.Put(ctx, fresh); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "failed to persist refreshed token")
	}
	m.mu.Lock()
	m.cached = fresh
	m.mu.Unlock()
	return fresh.AccessToken, nil
}

// expired clears state and fires the expired callback, returning err.
func (m *Manager) expired(err error) error {
	m.mu.Lock()
	m.cached = nil
	m.mu.Unlock()

	// Best effort; the persisted token is useless now.
	_ = m.store.Delete(context.Background(), m.userID, m.provider)

	if m.onExpired != nil {
		m.onExpired()
	}
	return err
}

// record converts a provider token response to a persistable record.
func (m *Manager) record(tok *github.OAuthToken) *store.TokenRecord {
	now := m.now()
	return &store.TokenRecord{
		UserID:       m.userID,
		Provider:     m.provider,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.ExpiresAt(now),
		UpdatedAt:    now,
	}
}
