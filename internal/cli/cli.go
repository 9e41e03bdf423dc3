// Package cli implements the devfinder command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/sourcingdenis/devfinder/internal/config"
	"github.com/sourcingdenis/devfinder/pkg/buildinfo"
	"github.com/sourcingdenis/devfinder/pkg/cache"
	"github.com/sourcingdenis/devfinder/pkg/enrich"
	"github.com/sourcingdenis/devfinder/pkg/github"
	"github.com/sourcingdenis/devfinder/pkg/lists"
	"github.com/sourcingdenis/devfinder/pkg/search"
	"github.com/sourcingdenis/devfinder/pkg/session"
	"github.com/sourcingdenis/devfinder/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "devfinder"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath overrides the config file location (--config flag).
	ConfigPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "devfinder",
		Short:        "DevFinder searches GitHub for developers",
		Long:         `DevFinder is a CLI tool for finding developers on GitHub: search with filters, enrich results with contact emails, and save profiles into lists for later export.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.authCommand())
	root.AddCommand(c.searchCommand())
	root.AddCommand(c.savedCommand())
	root.AddCommand(c.emailsCommand())
	root.AddCommand(c.listsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config & Backends
// =============================================================================

// loadConfig reads the config file (--config or the default path) with
// env overrides applied.
func (c *CLI) loadConfig() (*config.Config, error) {
	path := c.ConfigPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return config.Load(path)
}

// backends bundles the persistence stores a command may need, together
// with a close function for backends holding connections.
type backends struct {
	tokens   store.TokenStore
	emails   store.EmailStore
	lists    *lists.Service
	closeCtx func(context.Context) error
}

func (b *backends) close(ctx context.Context) {
	if b.closeCtx != nil {
		_ = b.closeCtx(ctx)
	}
}

// openBackends builds the stores the config selects. The memory backend
// lives only for the process; lists and enriched emails persist across
// runs only with the mongo backend.
func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	if cfg.Storage.Backend == "mongo" {
		m, err := store.NewMongo(ctx, store.MongoConfig{
			URI:      cfg.Storage.MongoURI,
			Database: cfg.Storage.MongoDB,
		})
		if err != nil {
			return nil, err
		}
		return &backends{
			tokens:   m,
			emails:   m.Emails(),
			lists:    lists.NewService(m.Lists(), m.Searches()),
			closeCtx: m.Close,
		}, nil
	}
	mem := store.NewMemory()
	return &backends{
		tokens: mem,
		emails: mem.Emails(),
		lists:  lists.NewService(mem.Lists(), mem.Searches()),
	}, nil
}

// =============================================================================
// Fetcher Factory
// =============================================================================

// newGitHubClient builds a client bound to the session's access token.
func newGitHubClient(cfg *config.Config, sess *session.Session) *github.Client {
	client := github.NewClient(github.StaticToken(sess.AccessToken))
	if cfg.GitHub.BaseURL != "" {
		client = client.WithBaseURL(cfg.GitHub.BaseURL)
	}
	return client
}

// newFetcher builds a search fetcher for the signed-in session, backed by
// the file page cache unless noCache is set.
func (c *CLI) newFetcher(cfg *config.Config, sess *session.Session, emails store.EmailStore, noCache bool) (*search.Fetcher, error) {
	client := newGitHubClient(cfg, sess)

	pages, err := newPageCache(noCache)
	if err != nil {
		return nil, err
	}

	enricher := enrich.New(client, emails, enrich.WithLogger(c.Logger))
	opts := []search.FetcherOption{
		search.WithEmailFinder(enricher),
		search.WithPageCache(pages),
		search.WithSalt(sess.UserID()),
		search.WithLogger(c.Logger),
	}
	if cfg.Search.RatePerSecond > 0 {
		opts = append(opts, search.WithLimiter(rate.NewLimiter(rate.Limit(cfg.Search.RatePerSecond), 1)))
	}
	return search.NewFetcher(client, opts...), nil
}

func newPageCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/devfinder/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
