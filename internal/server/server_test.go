package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sourcingdenis/devfinder/internal/config"
	"github.com/sourcingdenis/devfinder/pkg/cache"
	"github.com/sourcingdenis/devfinder/pkg/github"
	"github.com/sourcingdenis/devfinder/pkg/lists"
	"github.com/sourcingdenis/devfinder/pkg/search"
	"github.com/sourcingdenis/devfinder/pkg/session"
	"github.com/sourcingdenis/devfinder/pkg/store"
)

// testEnv wires a server against in-memory backends and a fake GitHub.
type testEnv struct {
	srv      *httptest.Server
	sessions *session.MemoryStore
	mem      *store.Memory
	cookie   *http.Cookie

	rateRemaining int
	rateProbes    int32
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{rateRemaining: 30}

	gh := newFakeGitHubAPI(t, env)

	cfg := config.Default()
	cfg.GitHub.BaseURL = gh.URL
	cfg.Search.RatePerSecond = 0

	env.sessions = session.NewMemoryStore()
	states := session.NewMemoryStateStore()
	env.mem = store.NewMemory()

	oauth := github.NewOAuthClient(github.OAuthConfig{ClientID: "test-app"}).
		WithEndpoints(gh.URL+"/login/oauth/authorize", gh.URL+"/login/oauth/access_token", "")

	server := New(
		cfg,
		env.sessions,
		states,
		oauth,
		env.mem,
		env.mem.Emails(),
		lists.NewService(env.mem.Lists(), env.mem.Searches()),
		cache.NewLRUCache(16),
	)
	env.srv = httptest.NewServer(server.Handler())
	t.Cleanup(env.srv.Close)

	// Seed a signed-in session.
	sess, err := session.New(
		&github.OAuthToken{AccessToken: "token-1"},
		&github.UserDetail{ID: 42, Login: "octocat"},
		time.Hour,
	)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	if err := env.sessions.Set(context.Background(), sess); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	if err := env.mem.Put(context.Background(), &store.TokenRecord{
		UserID:      sess.UserID(),
		Provider:    "github",
		AccessToken: "token-1",
		UpdatedAt:   time.Now(),
	}); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	env.cookie = &http.Cookie{Name: sessionCookie, Value: sess.ID}
	return env
}

// newFakeGitHubAPI serves just enough of the GitHub API for the handlers.
func newFakeGitHubAPI(t *testing.T, env *testEnv) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/rate_limit", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&env.rateProbes, 1)
		reset := time.Now().Add(time.Hour).Unix()
		fmt.Fprintf(w, `{"resources":{"core":{"limit":5000,"remaining":4000,"reset":%d},"search":{"limit":30,"remaining":%d,"reset":%d}}}`,
			reset, env.rateRemaining, reset)
	})
	mux.HandleFunc("/search/users", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("per_page") == "1" {
			fmt.Fprint(w, `{"total_count":2,"incomplete_results":false,"items":[]}`)
			return
		}
		fmt.Fprint(w, `{"total_count":2,"incomplete_results":false,"items":[{"id":1,"login":"dev1","avatar_url":"https://a/1"},{"id":2,"login":"dev2","avatar_url":"https://a/2"}]}`)
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":42,"login":"octocat","name":"The Octocat"}`)
	})
	mux.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		switch {
		case len(parts) == 3 && parts[2] == "repos":
			fmt.Fprint(w, `[{"id":1,"name":"p","language":"Go","stargazers_count":3,"fork":false}]`)
		case len(parts) == 4 && parts[2] == "events":
			fmt.Fprint(w, `[]`)
		default:
			fmt.Fprintf(w, `{"id":7,"login":%q,"name":"Dev","location":"Berlin"}`, parts[1])
		}
	})
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"exchanged-token","token_type":"bearer","scope":"read:user"}`)
	})

	// Every response except the probe carries rate-limit headers, the way
	// the live API reports the budget.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rate_limit" {
			w.Header().Set("x-ratelimit-remaining", strconv.Itoa(env.rateRemaining))
			w.Header().Set("x-ratelimit-limit", "30")
			w.Header().Set("x-ratelimit-reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (env *testEnv) request(t *testing.T, method, path string, body string, authed bool) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, env.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if authed {
		req.AddCookie(env.cookie)
	}
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealthzNeedsNoAuth(t *testing.T) {
	env := newTestEnv(t)
	resp := env.request(t, http.MethodGet, "/healthz", "", false)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAPIRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	resp := env.request(t, http.MethodGet, "/api/search?q=jane", "", false)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	body := decode[errorBody](t, resp)
	if body.Error.Code != "UNAUTHORIZED" {
		t.Errorf("code = %q, want UNAUTHORIZED", body.Error.Code)
	}
}

func TestSearchReturnsEnrichedPage(t *testing.T) {
	env := newTestEnv(t)
	resp := env.request(t, http.MethodGet, "/api/search?q=jane&language=Go", "", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	page := decode[search.Page](t, resp)
	if page.TotalCount != 2 || len(page.Records) != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.Records[0].Login != "dev1" || page.Records[0].Location != "Berlin" {
		t.Errorf("record not enriched: %+v", page.Records[0])
	}
}

func TestSearchReusesRateBudgetAcrossRequests(t *testing.T) {
	env := newTestEnv(t)

	// Distinct queries so the second request cannot be served from the
	// page cache.
	for _, q := range []string{"jane", "john"} {
		resp := env.request(t, http.MethodGet, "/api/search?q="+q, "", true)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("search %q status = %d, want 200", q, resp.StatusCode)
		}
	}

	// The first search probes the cold budget; after that, header-learned
	// state must persist across requests instead of starting over.
	if n := atomic.LoadInt32(&env.rateProbes); n > 1 {
		t.Errorf("%d rate-limit probes across 2 requests; budget knowledge should survive the first", n)
	}
}

func TestSearchRateLimited(t *testing.T) {
	env := newTestEnv(t)
	env.rateRemaining = 0

	resp := env.request(t, http.MethodGet, "/api/search?q=jane", "", true)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	body := decode[errorBody](t, resp)
	if body.Error.Code != "RATE_LIMITED" {
		t.Errorf("code = %q, want RATE_LIMITED", body.Error.Code)
	}
}

func TestSearchCSVExport(t *testing.T) {
	env := newTestEnv(t)
	resp := env.request(t, http.MethodGet, "/api/search/export.csv?q=jane", "", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
}

func TestListLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/lists", `{"name":"shortlist"}`, true)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	created := decode[store.ListRecord](t, resp)
	if created.ID == "" || created.Name != "shortlist" {
		t.Fatalf("unexpected list: %+v", created)
	}

	resp = env.request(t, http.MethodPost, "/api/lists/"+created.ID+"/profiles",
		`{"login":"dev1","id":1,"email":"d@x.test"}`, true)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("add profile status = %d, want 204", resp.StatusCode)
	}

	resp = env.request(t, http.MethodGet, "/api/lists/"+created.ID, "", true)
	got := decode[store.ListRecord](t, resp)
	if len(got.Profiles) != 1 || got.Profiles[0].Login != "dev1" {
		t.Fatalf("profile not saved: %+v", got)
	}

	resp = env.request(t, http.MethodDelete, "/api/lists/"+created.ID, "", true)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}
	resp = env.request(t, http.MethodGet, "/api/lists/"+created.ID, "", true)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", resp.StatusCode)
	}
}

func TestSaveAndReplaySearchOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/searches",
		`{"name":"rustaceans","filter":{"text":"jane","language":"Rust"}}`, true)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("save status = %d, want 201", resp.StatusCode)
	}
	saved := decode[store.SavedSearchRecord](t, resp)

	resp = env.request(t, http.MethodGet, "/api/searches/"+saved.ID+"/replay", "", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("replay status = %d, want 200", resp.StatusCode)
	}
	page := decode[search.Page](t, resp)
	if len(page.Records) == 0 {
		t.Error("replay returned no records")
	}
}

func TestStoreEmailValidation(t *testing.T) {
	env := newTestEnv(t)
	resp := env.request(t, http.MethodPost, "/api/emails",
		`{"login":"octocat","email":"not-an-email","source":"manual","confidence":0.5}`, true)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestLoginRedirectsWithState(t *testing.T) {
	env := newTestEnv(t)
	resp := env.request(t, http.MethodGet, "/auth/login", "", false)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", resp.StatusCode)
	}
	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("parse Location: %v", err)
	}
	if loc.Query().Get("state") == "" {
		t.Error("authorization URL missing state token")
	}
	if loc.Query().Get("client_id") != "test-app" {
		t.Errorf("client_id = %q", loc.Query().Get("client_id"))
	}
}

func TestCallbackRejectsUnknownState(t *testing.T) {
	env := newTestEnv(t)
	resp := env.request(t, http.MethodGet, "/auth/callback?state=forged&code=abc", "", false)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/auth/logout", "", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d, want 200", resp.StatusCode)
	}

	resp = env.request(t, http.MethodGet, "/api/me", "", true)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("me after logout = %d, want 401", resp.StatusCode)
	}
}
