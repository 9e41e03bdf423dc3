// Package enrich discovers and persists developer email addresses.
//
// Discovery runs two sources in parallel: the public profile email
// (authoritative when present) and commit authorship from recent public
// push events (confidence proportional to how often the address appears).
// When both come up empty a placeholder address is generated so callers
// always get a candidate; generated addresses carry zero confidence and
// must be labeled as guesses.
//
// Persisted emails are versioned. Updates use optimistic concurrency and
// never downgrade confidence: a discovery result only replaces a stored
// row when its confidence is strictly greater.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/sourcingdenis/devfinder/pkg/errors"
	"github.com/sourcingdenis/devfinder/pkg/github"
	"github.com/sourcingdenis/devfinder/pkg/httputil"
	"github.com/sourcingdenis/devfinder/pkg/store"
)

// Email sources, from most to least authoritative.
const (
	SourceProfile       = "profile"
	SourceCommitHistory = "commitHistory"
	SourceManual        = "manual"
	SourceGenerated     = "generated"
)

const (
	// conflictRetries bounds optimistic-concurrency retries of a store
	// operation before the conflict is surfaced.
	conflictRetries = 3

	// conflictBackoff is the base of the linear retry backoff; retry n
	// waits n times this long.
	conflictBackoff = 50 * time.Millisecond
)

// Candidate is one discovered email with its provenance.
type Candidate struct {
	Email      string
	Source     string
	Confidence float64
}

// Enricher discovers and persists emails for GitHub usernames.
type Enricher struct {
	client *github.Client
	emails store.EmailStore
	sleep  func(context.Context, time.Duration) error
	log    *log.Logger
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithSleep overrides the backoff sleep used between conflict retries.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(e *Enricher) { e.sleep = sleep }
}

// WithLogger overrides the enricher's logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Enricher) { e.log = logger }
}

// New creates an enricher backed by the given API client and store.
func New(client *github.Client, emails store.EmailStore, opts ...Option) *Enricher {
	e := &Enricher{
		client: client,
		emails: emails,
		log:    log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BestEmail returns the highest-confidence email known for a username.
//
// A previously persisted row short-circuits discovery entirely. Otherwise
// profile and commit-history lookups run in parallel, the best candidate
// wins, and the result is persisted for future calls. When discovery
// finds nothing a generated placeholder is returned and persisted so
// repeat lookups stay cheap.
func (e *Enricher) BestEmail(ctx context.Context, login string) (*store.EmailRecord, error) {
	if err := errors.ValidateUsername(login); err != nil {
		return nil, err
	}

	if rec, err := e.emails.Get(ctx, login); err == nil {
		return rec, nil
	} else if !errors.Is(err, errors.ErrCodeNotFound) {
		return nil, err
	}

	best := e.discover(ctx, login)
	rec, err := e.persist(ctx, login, best, "")
	if err != nil {
		// Persistence failing must not hide a found address.
		e.log.Debug("failed to persist discovered email", "login", login, "err", err)
		now := time.Now()
		return &store.EmailRecord{
			Username:   login,
			Email:      best.Email,
			Source:     best.Source,
			Confidence: best.Confidence,
			Version:    1,
			CreatedAt:  now,
			UpdatedAt:  now,
		}, nil
	}
	return rec, nil
}

// StoreEmail validates and persists a manually supplied email. All
// preconditions are checked before any network or storage call.
func (e *Enricher) StoreEmail(ctx context.Context, login, email, source string, confidence float64, enrichedBy string) (*store.EmailRecord, error) {
	if err := errors.ValidateUsername(login); err != nil {
		return nil, err
	}
	if err := errors.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := errors.ValidateEmailSource(source); err != nil {
		return nil, err
	}
	if err := errors.ValidateConfidence(confidence); err != nil {
		return nil, err
	}
	return e.persist(ctx, login, Candidate{Email: email, Source: source, Confidence: confidence}, enrichedBy)
}

// discover runs the profile and commit-history lookups in parallel and
// returns the best candidate, falling back to a generated placeholder.
func (e *Enricher) discover(ctx context.Context, login string) Candidate {
	var profile, commits Candidate

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		profile = e.profileEmail(gctx, login)
		return nil
	})
	g.Go(func() error {
		commits = e.commitEmail(gctx, login)
		return nil
	})
	// Lookups report failure as an empty candidate.
	_ = g.Wait()

	best := profile
	if commits.Confidence > best.Confidence {
		best = commits
	}
	if best.Email == "" {
		// Last resort so callers always get a candidate. Callers must
		// treat generated addresses as guesses, never as discovered.
		best = Candidate{
			Email:      fmt.Sprintf("%s@gmail.com", login),
			Source:     SourceGenerated,
			Confidence: 0,
		}
	}
	return best
}

// profileEmail returns the public profile email with full confidence, or
// an empty candidate.
func (e *Enricher) profileEmail(ctx context.Context, login string) Candidate {
	detail, err := e.client.User(ctx, login)
	if err != nil || detail.Email == "" {
		return Candidate{}
	}
	if errors.ValidateEmail(detail.Email) != nil {
		return Candidate{}
	}
	return Candidate{Email: detail.Email, Source: SourceProfile, Confidence: 1.0}
}

// commitEmail scans recent public push events for commit author emails
// and returns the most frequent non-noreply address. Confidence is that
// address's share of all qualifying commits observed.
func (e *Enricher) commitEmail(ctx context.Context, login string) Candidate {
	events, err := e.client.PublicEvents(ctx, login)
	if err != nil {
		return Candidate{}
	}

	counts := make(map[string]int)
	total := 0
	for _, ev := range events {
		if ev.Type != "PushEvent" {
			continue
		}
		for _, c := range ev.Payload.Commits {
			addr := strings.ToLower(strings.TrimSpace(c.Author.Email))
			if addr == "" || strings.Contains(addr, "noreply") {
				continue
			}
			if errors.ValidateEmail(addr) != nil {
				continue
			}
			counts[addr]++
			total++
		}
	}
	if total == 0 {
		return Candidate{}
	}

	best := ""
	for addr, n := range counts {
		if best == "" || n > counts[best] {
			best = addr
		}
	}
	return Candidate{
		Email:      best,
		Source:     SourceCommitHistory,
		Confidence: float64(counts[best]) / float64(total),
	}
}

// persist writes a candidate with optimistic concurrency, retrying
// version conflicts up to conflictRetries times with linear backoff.
//
// An existing row with equal or higher confidence wins; persist then
// returns the stored row unchanged. Downgrades never happen silently.
func (e *Enricher) persist(ctx context.Context, login string, cand Candidate, enrichedBy string) (*store.EmailRecord, error) {
	var result *store.EmailRecord

	err := httputil.RetryLinear(ctx, conflictRetries, conflictBackoff, e.sleep, func() error {
		existing, err := e.emails.Get(ctx, login)
		if err != nil && !errors.Is(err, errors.ErrCodeNotFound) {
			return err
		}

		if existing == nil {
			rec := &store.EmailRecord{
				Username:   login,
				Email:      cand.Email,
				Source:     cand.Source,
				Confidence: cand.Confidence,
				EnrichedBy: enrichedBy,
			}
			if err := e.emails.Create(ctx, rec); err != nil {
				if errors.Is(err, errors.ErrCodeStorageConflict) {
					// A racing writer created the row; re-read and
					// reconcile on the next attempt.
					return httputil.Retryable(err)
				}
				return err
			}
			result = rec
			return nil
		}

		if cand.Confidence <= existing.Confidence {
			result = existing
			return nil
		}

		updated := *existing
		updated.Email = cand.Email
		updated.Source = cand.Source
		updated.Confidence = cand.Confidence
		if enrichedBy != "" {
			updated.EnrichedBy = enrichedBy
		}
		if err := e.emails.Update(ctx, &updated, existing.Version); err != nil {
			if errors.Is(err, errors.ErrCodeStorageConflict) {
				return httputil.Retryable(err)
			}
			return err
		}
		result = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
