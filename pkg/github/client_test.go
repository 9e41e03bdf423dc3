package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/sourcingdenis/devfinder/pkg/errors"
)

func TestClient_SearchUsers(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/users" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("x-ratelimit-remaining", "29")
		w.Header().Set("x-ratelimit-limit", "30")
		json.NewEncoder(w).Encode(SearchResult{
			TotalCount: 2,
			Items: []User{
				{ID: 1, Login: "jane", AvatarURL: "https://example.com/1.png"},
				{ID: 2, Login: "joe", AvatarURL: "https://example.com/2.png"},
			},
		})
	}))
	defer server.Close()

	c := NewClient(StaticToken("tok")).WithBaseURL(server.URL)

	result, err := c.SearchUsers(context.Background(), "jane language:Rust", "", "", 1, 30)
	if err != nil {
		t.Fatalf("SearchUsers failed: %v", err)
	}
	if gotQuery != "jane language:Rust" {
		t.Errorf("got query %q", gotQuery)
	}
	if result.TotalCount != 2 || len(result.Items) != 2 {
		t.Errorf("got total=%d items=%d", result.TotalCount, len(result.Items))
	}

	// The response headers must have refreshed the budget.
	state := c.Budget().Snapshot()
	if state.Remaining != 29 || state.Total != 30 {
		t.Errorf("budget not updated from headers: %+v", state)
	}
}

func TestClient_AuthHeader(t *testing.T) {
	var gotAuth, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		json.NewEncoder(w).Encode(UserDetail{Login: "jane"})
	}))
	defer server.Close()

	c := NewClient(StaticToken("tok-123")).WithBaseURL(server.URL)
	if _, err := c.User(context.Background(), "jane"); err != nil {
		t.Fatal(err)
	}

	if gotAuth != "Bearer tok-123" {
		t.Errorf("got Authorization %q", gotAuth)
	}
	if gotAccept != "application/vnd.github.v3+json" {
		t.Errorf("got Accept %q", gotAccept)
	}
}

func TestClient_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	c := NewClient(nil).WithBaseURL(server.URL)
	_, err := c.User(context.Background(), "ghost")
	if errors.GetCode(err) != errors.ErrCodeNotFound {
		t.Errorf("got %v, want NOT_FOUND", err)
	}
}

func TestClient_RateLimitedOn403(t *testing.T) {
	reset := time.Now().Add(time.Hour).Unix()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-ratelimit-remaining", "0")
		w.Header().Set("x-ratelimit-reset", strconv.FormatInt(reset, 10))
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := NewClient(nil).WithBaseURL(server.URL)
	_, err := c.SearchUsers(context.Background(), "jane", "", "", 1, 30)

	resetAt, ok := errors.IsRateLimited(err)
	if !ok {
		t.Fatalf("got %v, want rate-limited error", err)
	}
	if resetAt.Unix() != reset {
		t.Errorf("got reset %v, want %v", resetAt.Unix(), reset)
	}
}

func TestClient_RateLimitProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rate_limit" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"resources": map[string]any{
				"core":   Rate{Limit: 5000, Remaining: 4999, Reset: 100},
				"search": Rate{Limit: 30, Remaining: 3, Reset: 200},
			},
		})
	}))
	defer server.Close()

	c := NewClient(nil).WithBaseURL(server.URL)
	rate, err := c.RateLimit(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rate.Remaining != 3 || rate.Limit != 30 {
		t.Errorf("got %+v, want search bucket", rate)
	}

	state := c.Budget().Snapshot()
	if state.Remaining != 3 || state.Total != 30 {
		t.Errorf("budget should track the search bucket: %+v", state)
	}
}

func TestClient_Retries5xx(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(UserDetail{Login: "jane"})
	}))
	defer server.Close()

	c := NewClient(nil).WithBaseURL(server.URL)
	// Shorten the retry path: the exponential helper starts at 1s, which
	// is acceptable for a single retry in tests.
	detail, err := c.User(context.Background(), "jane")
	if err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if detail.Login != "jane" || calls != 2 {
		t.Errorf("got login=%q calls=%d", detail.Login, calls)
	}
}
