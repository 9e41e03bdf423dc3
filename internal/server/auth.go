package server

import (
	"context"
	"net/http"
	"time"

	"github.com/sourcingdenis/devfinder/pkg/errors"
	"github.com/sourcingdenis/devfinder/pkg/github"
	"github.com/sourcingdenis/devfinder/pkg/session"
	"github.com/sourcingdenis/devfinder/pkg/store"
)

type contextKey string

const sessionKey contextKey = "session"

// sessionFrom returns the authenticated session stored by requireSession.
func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey).(*session.Session)
	return sess
}

// requireSession authenticates the request from the session cookie.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil {
			writeError(w, errors.New(errors.ErrCodeUnauthorized, "sign in required"))
			return
		}
		sess, err := s.sessions.Get(r.Context(), cookie.Value)
		if err != nil {
			writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "session lookup failed"))
			return
		}
		if sess == nil {
			writeError(w, errors.New(errors.ErrCodeSessionExpired, "session expired; sign in again"))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
	})
}

// handleLogin redirects the browser to GitHub's authorization page with a
// fresh CSRF state token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := s.states.Generate(r.Context(), session.DefaultStateTTL)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "failed to create state token"))
		return
	}
	http.Redirect(w, r, s.oauth.AuthorizationURL(state), http.StatusFound)
}

// handleCallback completes the OAuth flow: validate state, exchange the
// code, load the user, persist the provider token, and set the session
// cookie.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	ok, err := s.states.Validate(r.Context(), state)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "state validation failed"))
		return
	}
	if !ok {
		writeError(w, errors.New(errors.ErrCodeUnauthorized, "invalid or expired state token"))
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "missing authorization code"))
		return
	}

	tok, err := s.oauth.ExchangeCode(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}

	client := github.NewClient(github.StaticToken(tok.AccessToken))
	if s.apiBase != "" {
		client = client.WithBaseURL(s.apiBase)
	}
	user, err := client.AuthenticatedUser(r.Context())
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeUnauthorized, err, "failed to load authenticated user"))
		return
	}

	sess, err := session.New(tok, user, s.cfg.Server.TTL())
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "failed to create session"))
		return
	}
	if err := s.sessions.Set(r.Context(), sess); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "failed to store session"))
		return
	}

	// Persist the provider token so background refresh can find it.
	now := time.Now()
	if err := s.tokens.Put(r.Context(), &store.TokenRecord{
		UserID:       sess.UserID(),
		Provider:     providerGitHub,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.ExpiresAt(now),
		UpdatedAt:    now,
	}); err != nil {
		s.log.Warn("failed to persist provider token", "user", sess.UserID(), "err", err)
	}

	// A fresh sign-in invalidates any client cached for the old credentials.
	s.dropClient(sess.UserID())

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleLogout deletes the session and clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if sess, _ := s.sessions.Get(r.Context(), cookie.Value); sess != nil {
			_ = s.tokens.Delete(r.Context(), sess.UserID(), providerGitHub)
			s.dropClient(sess.UserID())
		}
		_ = s.sessions.Delete(r.Context(), cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

// handleMe returns the authenticated user's profile.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	writeJSON(w, http.StatusOK, sess.User)
}
