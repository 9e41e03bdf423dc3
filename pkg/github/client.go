package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sourcingdenis/devfinder/pkg/errors"
	"github.com/sourcingdenis/devfinder/pkg/httputil"
	"github.com/sourcingdenis/devfinder/pkg/observability"
)

const (
	defaultBaseURL = "https://api.github.com"
	httpTimeout    = 10 * time.Second
)

// TokenSource supplies a currently-valid access token for API calls.
// Implementations may refresh tokens on demand; an empty token with a nil
// error means unauthenticated access.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed token.
type StaticToken string

// Token returns the fixed token.
func (s StaticToken) Token(ctx context.Context) (string, error) { return string(s), nil }

// Client provides access to the GitHub REST API.
// It handles authentication headers, automatic retries on transient
// failures, and keeps the shared rate budget current from response headers.
type Client struct {
	http    *http.Client
	baseURL string
	tokens  TokenSource
	budget  *RateBudget
}

// NewClient creates a GitHub API client. Pass a nil TokenSource for
// unauthenticated requests (lower rate limits).
func NewClient(tokens TokenSource) *Client {
	return &Client{
		http:    &http.Client{Timeout: httpTimeout},
		baseURL: defaultBaseURL,
		tokens:  tokens,
		budget:  NewRateBudget(),
	}
}

// WithBaseURL overrides the API base URL. Used in tests against httptest
// servers.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = base
	return c
}

// Budget returns the shared rate-limit budget.
func (c *Client) Budget() *RateBudget { return c.budget }

// SearchUsers issues GET /search/users with the given query and paging.
// Sort and order may be empty for GitHub's default (best match).
func (c *Client) SearchUsers(ctx context.Context, query, sort, order string, page, perPage int) (*SearchResult, error) {
	params := url.Values{"q": {query}}
	if sort != "" {
		params.Set("sort", sort)
	}
	if order != "" {
		params.Set("order", order)
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	var result SearchResult
	if err := c.get(ctx, "/search/users?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AuthenticatedUser fetches the profile of the token's owner.
func (c *Client) AuthenticatedUser(ctx context.Context) (*UserDetail, error) {
	var detail UserDetail
	if err := c.get(ctx, "/user", &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// User fetches the full profile for a login.
func (c *Client) User(ctx context.Context, login string) (*UserDetail, error) {
	var detail UserDetail
	if err := c.get(ctx, "/users/"+url.PathEscape(login), &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Repos fetches up to perPage repositories for a login, most recently
// pushed first.
func (c *Client) Repos(ctx context.Context, login string, perPage int) ([]Repo, error) {
	path := fmt.Sprintf("/users/%s/repos?sort=pushed&per_page=%d", url.PathEscape(login), perPage)
	var repos []Repo
	if err := c.get(ctx, path, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// PublicEvents fetches recent public events for a login.
func (c *Client) PublicEvents(ctx context.Context, login string) ([]Event, error) {
	path := fmt.Sprintf("/users/%s/events/public?per_page=100", url.PathEscape(login))
	var events []Event
	if err := c.get(ctx, path, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// RateLimit probes GET /rate_limit and refreshes the shared budget from the
// search bucket (the bucket user search consumes). The probe itself does
// not count against the rate limit.
func (c *Client) RateLimit(ctx context.Context) (*Rate, error) {
	var resp rateLimitResponse
	if err := c.get(ctx, "/rate_limit", &resp); err != nil {
		return nil, err
	}
	c.budget.Update(resp.Resources.Search.Remaining, resp.Resources.Search.Limit, time.Unix(resp.Resources.Search.Reset, 0))
	return &resp.Resources.Search, nil
}

// get performs an authenticated GET, retrying transient failures, and
// JSON-decodes the response into v.
func (c *Client) get(ctx context.Context, path string, v any) error {
	return httputil.RetryWithBackoff(ctx, func() error {
		return c.doGet(ctx, path, v)
	})
}

func (c *Client) doGet(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	observability.HTTP().OnRequest(ctx, http.MethodGet, req.URL.Host, req.URL.Path)

	resp, err := c.http.Do(req)
	if err != nil {
		observability.HTTP().OnError(ctx, http.MethodGet, req.URL.Host, req.URL.Path, err)
		return httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "GET %s", path))
	}
	defer resp.Body.Close()

	observability.HTTP().OnResponse(ctx, http.MethodGet, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))
	c.budget.UpdateFromHeaders(resp.Header)

	if err := c.checkStatus(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *Client) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, "resource not found")
	case resp.StatusCode == http.StatusUnauthorized:
		return errors.New(errors.ErrCodeUnauthorized, "bad or expired credentials")
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		if remainingHeader(resp.Header) == 0 {
			return &errors.RateLimitedError{ResetAt: resetHeader(resp.Header)}
		}
		return errors.New(errors.ErrCodeUnauthorized, "forbidden: status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusUnprocessableEntity:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.New(errors.ErrCodeInvalidInput, "unprocessable query: %s", body)
	case resp.StatusCode >= 500:
		return httputil.Retryable(errors.New(errors.ErrCodeNetwork, "server error: status %d", resp.StatusCode))
	default:
		return errors.New(errors.ErrCodeNetwork, "unexpected status %d", resp.StatusCode)
	}
}

func remainingHeader(h http.Header) int {
	n, err := strconv.Atoi(h.Get("x-ratelimit-remaining"))
	if err != nil {
		return -1
	}
	return n
}

func resetHeader(h http.Header) time.Time {
	sec, err := strconv.ParseInt(h.Get("x-ratelimit-reset"), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
