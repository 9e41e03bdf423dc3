package search

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sourcingdenis/devfinder/pkg/cache"
	"github.com/sourcingdenis/devfinder/pkg/errors"
	"github.com/sourcingdenis/devfinder/pkg/github"
	"github.com/sourcingdenis/devfinder/pkg/observability"
	"github.com/sourcingdenis/devfinder/pkg/store"
)

const (
	// enrichWidth bounds the per-user enrichment fan-out within one page.
	enrichWidth = 10

	// lowBudgetThreshold forces a rate-limit probe before searching when
	// the cached remaining budget drops to this value or below.
	lowBudgetThreshold = 5

	// budgetMaxAge forces a probe when the cached budget is older than
	// this, regardless of its remaining count.
	budgetMaxAge = time.Minute

	// maxResultWindow is GitHub's hard cap on search results; pages past
	// it return nothing.
	maxResultWindow = 1000
)

// Record is one enriched search result.
//
// When Partial is set, the detail lookup for the user failed and only the
// fields present in the raw search response (login, id, avatar) are
// populated. Callers should render partial records with missing-field
// indicators rather than dropping them.
type Record struct {
	Login     string `json:"login"`
	ID        int64  `json:"id"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url,omitempty"`

	Name        string `json:"name,omitempty"`
	Company     string `json:"company,omitempty"`
	Location    string `json:"location,omitempty"`
	Bio         string `json:"bio,omitempty"`
	Hireable    bool   `json:"hireable,omitempty"`
	Followers   int    `json:"followers,omitempty"`
	PublicRepos int    `json:"public_repos,omitempty"`

	TopLanguage string `json:"top_language,omitempty"`

	Email           string  `json:"email,omitempty"`
	EmailSource     string  `json:"email_source,omitempty"`
	EmailConfidence float64 `json:"email_confidence,omitempty"`

	Partial bool `json:"partial,omitempty"`
}

// Page is one assembled page of enriched results.
type Page struct {
	// TotalCount is the authoritative total for the filter, taken from a
	// separate per_page=1 probe rather than the page response itself.
	TotalCount int `json:"total_count"`

	// Records are the enriched results in API order.
	Records []Record `json:"records"`

	// Partial counts how many records degraded to partial results.
	Partial int `json:"partial"`
}

// EmailFinder resolves the best known email for a username.
// *enrich.Enricher satisfies this interface.
type EmailFinder interface {
	BestEmail(ctx context.Context, login string) (*store.EmailRecord, error)
}

// Fetcher executes searches against the GitHub API.
type Fetcher struct {
	client  *github.Client
	emails  EmailFinder
	pages   cache.Cache
	keyer   cache.Keyer
	limiter *rate.Limiter
	salt    string
	log     *log.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithEmailFinder attaches email enrichment to page fetches.
func WithEmailFinder(e EmailFinder) FetcherOption {
	return func(f *Fetcher) { f.emails = e }
}

// WithPageCache memoizes successful pages in the given cache. Entries are
// written without a TTL; only capacity eviction removes them.
func WithPageCache(c cache.Cache) FetcherOption {
	return func(f *Fetcher) { f.pages = c }
}

// WithLimiter paces search API calls with the given limiter.
func WithLimiter(l *rate.Limiter) FetcherOption {
	return func(f *Fetcher) { f.limiter = l }
}

// WithSalt sets a cache-busting salt mixed into every page cache key.
// Changing the salt makes all previously cached pages unreachable.
func WithSalt(salt string) FetcherOption {
	return func(f *Fetcher) { f.salt = salt }
}

// WithKeyer overrides the cache key generator. Pass a [cache.ScopedKeyer]
// to isolate one user's cached pages from another's when a cache backend
// is shared.
func WithKeyer(k cache.Keyer) FetcherOption {
	return func(f *Fetcher) {
		if k != nil {
			f.keyer = k
		}
	}
}

// WithLogger overrides the fetcher's logger.
func WithLogger(logger *log.Logger) FetcherOption {
	return func(f *Fetcher) { f.log = logger }
}

// NewFetcher creates a search fetcher backed by the given API client.
func NewFetcher(client *github.Client, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client: client,
		keyer:  cache.NewDefaultKeyer(),
		log:    log.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchPage runs the search for the filter's page and enriches every
// returned user with profile detail, top language, and email.
//
// Per-user failures degrade the affected record instead of failing the
// page. Before any search call the rate budget is checked; a probed
// remaining count of zero fails fast with a RATE_LIMITED error carrying
// the reset time, without issuing the search.
func (f *Fetcher) FetchPage(ctx context.Context, filter Filter) (*Page, error) {
	key := ""
	if f.pages != nil {
		key = f.keyer.SearchKey(filter, f.salt)
		if data, ok, err := f.pages.Get(ctx, key); err == nil && ok {
			var page Page
			if err := json.Unmarshal(data, &page); err == nil {
				observability.Cache().OnCacheHit(ctx, "search_page")
				return &page, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "search_page")
	}

	if err := f.guardBudget(ctx); err != nil {
		return nil, err
	}

	query := filter.Query()
	start := time.Now()
	observability.Search().OnSearchStart(ctx, query, filter.page())

	result, err := f.searchUsers(ctx, filter, filter.page(), filter.perPage())
	if err != nil {
		observability.Search().OnSearchComplete(ctx, query, filter.page(), 0, 0, time.Since(start), err)
		return nil, err
	}

	records := f.enrichAll(ctx, result.Items)

	page := &Page{
		TotalCount: result.TotalCount,
		Records:    records,
	}
	for _, rec := range records {
		if rec.Partial {
			page.Partial++
		}
	}

	// The enriched call and a concurrent cheap call can disagree on the
	// total; the per_page=1 probe is authoritative.
	if total, err := f.FetchTotalCount(ctx, filter); err == nil {
		page.TotalCount = total
	}

	observability.Search().OnSearchComplete(ctx, query, filter.page(), len(records), page.Partial, time.Since(start), nil)

	if f.pages != nil {
		if data, err := json.Marshal(page); err == nil {
			if err := f.pages.Set(ctx, key, data, 0); err == nil {
				observability.Cache().OnCacheSet(ctx, "search_page", len(data))
			}
		}
	}
	return page, nil
}

// FetchTotalCount returns the authoritative total for the filter using a
// cheap per_page=1 call.
func (f *Fetcher) FetchTotalCount(ctx context.Context, filter Filter) (int, error) {
	result, err := f.searchUsers(ctx, filter, 1, 1)
	if err != nil {
		return 0, err
	}
	return result.TotalCount, nil
}

// FetchAllPages fetches pages starting at the filter's page until a short
// page arrives or the accumulated count reaches the authoritative total.
//
// A failed page is retried once; if the retry also fails, or the failure
// is an auth or rate-limit error, the loop stops and returns what it has.
// Partial accumulation is a soft stop, not an error.
func (f *Fetcher) FetchAllPages(ctx context.Context, filter Filter) (*Page, error) {
	all := &Page{}
	perPage := filter.perPage()
	current := filter
	current.Page = filter.page()

	for len(all.Records) < maxResultWindow {
		page, err := f.FetchPage(ctx, current)
		if err != nil {
			if stop, why := terminalForLoop(err); stop {
				f.log.Warn("stopping pagination early", "reason", why, "page", current.Page, "collected", len(all.Records))
				break
			}
			// One retry of the same page; skipping would silently drop
			// its results.
			page, err = f.FetchPage(ctx, current)
			if err != nil {
				f.log.Warn("page failed twice, stopping pagination", "page", current.Page, "err", err, "collected", len(all.Records))
				break
			}
		}

		all.Records = append(all.Records, page.Records...)
		all.Partial += page.Partial
		all.TotalCount = page.TotalCount

		if len(page.Records) < perPage || len(all.Records) >= page.TotalCount {
			break
		}
		current.Page++
	}
	return all, nil
}

// searchUsers issues one search call, respecting the pacing limiter.
func (f *Fetcher) searchUsers(ctx context.Context, filter Filter, page, perPage int) (*github.SearchResult, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(errors.ErrCodeTimeout, err, "rate limiter wait interrupted")
		}
	}
	return f.client.SearchUsers(ctx, filter.Query(), filter.Sort, filter.Order, page, perPage)
}

// guardBudget probes the rate limit when the cached budget is unknown,
// stale, or nearly exhausted, and fails fast when the probe reports an
// empty budget.
func (f *Fetcher) guardBudget(ctx context.Context) error {
	budget := f.client.Budget()
	state := budget.Snapshot()
	if state.Known() && state.Remaining > lowBudgetThreshold && !budget.Stale(budgetMaxAge) {
		return nil
	}

	probed, err := f.client.RateLimit(ctx)
	if err != nil {
		// The probe itself failing must not block the search.
		f.log.Debug("rate limit probe failed", "err", err)
		return nil
	}
	if probed.Remaining <= 0 {
		return &errors.RateLimitedError{ResetAt: time.Unix(probed.Reset, 0)}
	}
	return nil
}

// enrichAll fans out per-user enrichment with bounded concurrency and
// merges results positionally, preserving API order.
func (f *Fetcher) enrichAll(ctx context.Context, users []github.User) []Record {
	records := make([]Record, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichWidth)
	for i, user := range users {
		i, user := i, user
		g.Go(func() error {
			records[i] = f.enrichUser(gctx, user)
			return nil
		})
	}
	// Workers never return errors; failures degrade individual records.
	_ = g.Wait()
	return records
}

// enrichUser builds one record. A failed detail lookup degrades the
// record to the raw search fields; failed language or email lookups just
// leave those fields empty.
func (f *Fetcher) enrichUser(ctx context.Context, user github.User) Record {
	rec := Record{
		Login:     user.Login,
		ID:        user.ID,
		AvatarURL: user.AvatarURL,
	}

	detail, err := f.client.User(ctx, user.Login)
	if err != nil {
		rec.Partial = true
		return rec
	}
	rec.HTMLURL = detail.HTMLURL
	rec.Name = detail.Name
	rec.Company = detail.Company
	rec.Location = detail.Location
	rec.Bio = detail.Bio
	rec.Hireable = detail.Hireable
	rec.Followers = detail.Followers
	rec.PublicRepos = detail.PublicRepos

	if lang, err := f.topLanguage(ctx, user.Login); err == nil {
		rec.TopLanguage = lang
	}

	if f.emails != nil {
		if email, err := f.emails.BestEmail(ctx, user.Login); err == nil && email != nil {
			rec.Email = email.Email
			rec.EmailSource = email.Source
			rec.EmailConfidence = email.Confidence
			observability.Search().OnEnrichment(ctx, user.Login, email.Source, email.Confidence, nil)
		} else if err != nil {
			observability.Search().OnEnrichment(ctx, user.Login, "", 0, err)
		}
	}
	return rec
}

// topLanguage returns the most frequent language across the user's
// non-fork repositories, breaking ties by total stars.
func (f *Fetcher) topLanguage(ctx context.Context, login string) (string, error) {
	repos, err := f.client.Repos(ctx, login, 100)
	if err != nil {
		return "", err
	}
	counts := make(map[string]int)
	stars := make(map[string]int)
	for _, repo := range repos {
		if repo.Fork || repo.Language == "" {
			continue
		}
		counts[repo.Language]++
		stars[repo.Language] += repo.Stars
	}
	best := ""
	for lang := range counts {
		if best == "" {
			best = lang
			continue
		}
		if counts[lang] > counts[best] || (counts[lang] == counts[best] && stars[lang] > stars[best]) {
			best = lang
		}
	}
	return best, nil
}

// terminalForLoop reports whether a page error should stop pagination
// without a retry, with a short reason for the log line.
func terminalForLoop(err error) (bool, string) {
	if _, ok := errors.IsRateLimited(err); ok {
		return true, "rate limited"
	}
	if errors.IsAuthExpired(err) || errors.Is(err, errors.ErrCodeUnauthorized) {
		return true, "authentication failed"
	}
	return false, ""
}
