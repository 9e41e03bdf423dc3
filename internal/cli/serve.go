package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/sourcingdenis/devfinder/internal/config"
	"github.com/sourcingdenis/devfinder/internal/server"
	"github.com/sourcingdenis/devfinder/pkg/cache"
	"github.com/sourcingdenis/devfinder/pkg/github"
	"github.com/sourcingdenis/devfinder/pkg/session"
)

// shutdownTimeout bounds graceful shutdown on interrupt.
const shutdownTimeout = 10 * time.Second

// serveCommand creates the serve command running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the DevFinder HTTP API",
		Long: `Start the session-authenticated HTTP API.

Backends are selected by the config file: storage can be in-memory or
MongoDB, sessions and the page cache can additionally live in Redis.
The browser OAuth flow needs github.client_id and github.client_secret
configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := c.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if cfg.GitHub.ClientID == "" || cfg.GitHub.ClientSecret == "" {
				return fmt.Errorf("github.client_id and github.client_secret must be configured for serve")
			}

			return c.runServer(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func (c *CLI) runServer(ctx context.Context, cfg *config.Config) error {
	backends, err := openBackends(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer backends.close(context.Background())

	sessions, states, err := newSessionStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}

	pages, err := newServerPageCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open page cache: %w", err)
	}

	oauth := github.NewOAuthClient(github.OAuthConfig{
		ClientID:     cfg.GitHub.ClientID,
		ClientSecret: cfg.GitHub.ClientSecret,
		RedirectURI:  cfg.GitHub.RedirectURI,
	})

	srv := server.New(cfg, sessions, states, oauth,
		backends.tokens, backends.emails, backends.lists, pages,
		server.WithLogger(c.Logger))

	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", cfg.Server.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		c.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

// newSessionStores builds the session and CSRF state stores. Redis keeps
// sessions across restarts; otherwise they live in memory.
func newSessionStores(ctx context.Context, cfg *config.Config) (session.Store, session.StateStore, error) {
	if cfg.Cache.Backend == "redis" {
		rc := session.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		}
		sessions, err := session.NewRedisStore(ctx, rc)
		if err != nil {
			return nil, nil, err
		}
		states, err := session.NewRedisStateStore(ctx, rc)
		if err != nil {
			return nil, nil, err
		}
		return sessions, states, nil
	}
	return session.NewMemoryStore(), session.NewMemoryStateStore(), nil
}

// newServerPageCache builds the shared search page cache per config.
func newServerPageCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case "none":
		return cache.NewNullCache(), nil
	case "file":
		dir := cfg.Cache.Dir
		if dir == "" {
			var err error
			dir, err = cacheDir()
			if err != nil {
				return nil, err
			}
		}
		return cache.NewFileCache(dir)
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
	default:
		return cache.NewLRUCache(cfg.Cache.PageCapacity), nil
	}
}
