// Package server exposes DevFinder over HTTP.
//
// The API is session-authenticated: the browser OAuth flow under /auth
// establishes a session cookie, and everything under /api (except
// /healthz) requires it. Handlers translate coded errors into JSON
// responses with matching HTTP status codes.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/sourcingdenis/devfinder/internal/config"
	"github.com/sourcingdenis/devfinder/pkg/cache"
	"github.com/sourcingdenis/devfinder/pkg/enrich"
	"github.com/sourcingdenis/devfinder/pkg/github"
	"github.com/sourcingdenis/devfinder/pkg/lists"
	"github.com/sourcingdenis/devfinder/pkg/search"
	"github.com/sourcingdenis/devfinder/pkg/session"
	"github.com/sourcingdenis/devfinder/pkg/store"
	"github.com/sourcingdenis/devfinder/pkg/token"
)

// sessionCookie is the name of the session cookie.
const sessionCookie = "devfinder_session"

// providerGitHub is the token store provider key for GitHub.
const providerGitHub = "github"

// Server is the HTTP API server.
type Server struct {
	cfg      *config.Config
	log      *log.Logger
	sessions session.Store
	states   session.StateStore
	oauth    *github.OAuthClient
	tokens   store.TokenStore
	emails   store.EmailStore
	lists    *lists.Service

	// pageCache is shared across requests; per-user scoped keyers keep
	// owners' cached pages separate.
	pageCache cache.Cache

	// limiter paces search API calls across all requests.
	limiter *rate.Limiter

	// apiBase overrides the GitHub API endpoint, for tests and GHE.
	apiBase string

	// clients holds one GitHub client per signed-in user. The client wraps
	// the user's token manager, so concurrent requests share a single
	// refresh flight, and keeps the rate budget learned from response
	// headers alive across requests.
	clientsMu sync.Mutex
	clients   map[string]*github.Client

	router chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithAPIBase points GitHub API calls at a different endpoint.
func WithAPIBase(base string) Option {
	return func(s *Server) { s.apiBase = base }
}

// WithLogger overrides the server's logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) { s.log = logger }
}

// New assembles the API server from its backends.
func New(
	cfg *config.Config,
	sessions session.Store,
	states session.StateStore,
	oauth *github.OAuthClient,
	tokens store.TokenStore,
	emails store.EmailStore,
	listSvc *lists.Service,
	pageCache cache.Cache,
	opts ...Option,
) *Server {
	s := &Server{
		cfg:       cfg,
		log:       log.Default(),
		sessions:  sessions,
		states:    states,
		oauth:     oauth,
		tokens:    tokens,
		emails:    emails,
		lists:     listSvc,
		pageCache: pageCache,
		apiBase:   cfg.GitHub.BaseURL,
		clients:   make(map[string]*github.Client),
	}
	if cfg.Search.RatePerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Search.RatePerSecond), 1)
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the assembled HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", s.handleLogin)
		r.Get("/callback", s.handleCallback)
		r.Post("/logout", s.handleLogout)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireSession)

		r.Get("/me", s.handleMe)

		r.Get("/search", s.handleSearch)
		r.Get("/search/export.csv", s.handleSearchCSV)

		r.Post("/emails", s.handleStoreEmail)
		r.Get("/emails/{login}", s.handleBestEmail)

		r.Route("/lists", func(r chi.Router) {
			r.Post("/", s.handleCreateList)
			r.Get("/", s.handleLists)
			r.Route("/{listID}", func(r chi.Router) {
				r.Get("/", s.handleList)
				r.Patch("/", s.handleRenameList)
				r.Delete("/", s.handleDeleteList)
				r.Get("/export.csv", s.handleListCSV)
				r.Post("/profiles", s.handleAddProfile)
				r.Delete("/profiles/{login}", s.handleRemoveProfile)
			})
		})

		r.Route("/searches", func(r chi.Router) {
			r.Post("/", s.handleSaveSearch)
			r.Get("/", s.handleSavedSearches)
			r.Get("/{searchID}/replay", s.handleReplaySearch)
			r.Delete("/{searchID}", s.handleDeleteSearch)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// logRequests writes one structured line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

// clientFor returns the user's GitHub client, creating it on first use.
// The client is cached for the life of the sign-in: its token manager
// serves refreshed tokens transparently, and its rate budget accumulates
// header knowledge instead of starting cold on every request.
func (s *Server) clientFor(sess *session.Session) *github.Client {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	if client, ok := s.clients[sess.UserID()]; ok {
		return client
	}
	client := github.NewClient(s.newManager(sess))
	if s.apiBase != "" {
		client = client.WithBaseURL(s.apiBase)
	}
	s.clients[sess.UserID()] = client
	return client
}

// newManager builds the user's token manager. A terminal refresh failure
// signs the user out.
func (s *Server) newManager(sess *session.Session) *token.Manager {
	sessionID := sess.ID
	return token.NewManager(sess.UserID(), providerGitHub, s.tokens, s.oauth,
		token.WithExpiredCallback(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.sessions.Delete(ctx, sessionID); err != nil {
				s.log.Warn("delete session after token expiry", "err", err)
			}
		}))
}

// dropClient forgets a user's cached GitHub client. Called on logout and
// on a fresh sign-in so stale manager and budget state never outlives the
// credentials it was built from.
func (s *Server) dropClient(userID string) {
	s.clientsMu.Lock()
	delete(s.clients, userID)
	s.clientsMu.Unlock()
}

// fetcherFor builds a per-request fetcher. The page cache is shared; a
// per-user scoped keyer keeps owners' cached pages separate.
func (s *Server) fetcherFor(sess *session.Session) *search.Fetcher {
	client := s.clientFor(sess)
	enricher := enrich.New(client, s.emails, enrich.WithLogger(s.log))
	opts := []search.FetcherOption{
		search.WithEmailFinder(enricher),
		search.WithPageCache(s.pageCache),
		search.WithKeyer(cache.NewScopedKeyer(nil, "user:"+sess.UserID()+":")),
		search.WithLogger(s.log),
	}
	if s.limiter != nil {
		opts = append(opts, search.WithLimiter(s.limiter))
	}
	return search.NewFetcher(client, opts...)
}

func (s *Server) enricherFor(sess *session.Session) *enrich.Enricher {
	return enrich.New(s.clientFor(sess), s.emails, enrich.WithLogger(s.log))
}
