// Package config loads DevFinder configuration from a TOML file with
// environment-variable overrides.
//
// The file lives at ~/.config/devfinder/config.toml by default. Every
// value has a sensible default, so a missing file is not an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full application configuration.
type Config struct {
	GitHub  GitHub  `toml:"github"`
	Server  Server  `toml:"server"`
	Storage Storage `toml:"storage"`
	Cache   Cache   `toml:"cache"`
	Search  Search  `toml:"search"`
}

// GitHub holds OAuth and API settings.
type GitHub struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	// BaseURL overrides the API endpoint, for GitHub Enterprise.
	BaseURL string `toml:"base_url"`
}

// Server holds HTTP API settings.
type Server struct {
	Addr         string   `toml:"addr"`
	SessionTTL   duration `toml:"session_ttl"`
	CORSOrigins  []string `toml:"cors_origins"`
	ReadTimeout  duration `toml:"read_timeout"`
	WriteTimeout duration `toml:"write_timeout"`
}

// Storage selects and configures the persistence backend.
type Storage struct {
	// Backend is "memory" or "mongo".
	Backend  string `toml:"backend"`
	MongoURI string `toml:"mongo_uri"`
	MongoDB  string `toml:"mongo_db"`
}

// Cache selects and configures the cache backend.
type Cache struct {
	// Backend is "memory", "file", "redis", or "none".
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	// PageCapacity bounds the in-memory search page cache.
	PageCapacity int `toml:"page_capacity"`
}

// Search holds fetcher tuning.
type Search struct {
	PerPage int `toml:"per_page"`
	// RatePerSecond paces search API calls; zero disables pacing.
	RatePerSecond float64 `toml:"rate_per_second"`
}

// duration wraps time.Duration for TOML strings like "24h".
type duration struct{ time.Duration }

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns the configuration used when no file or overrides exist.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:         ":8080",
			SessionTTL:   duration{24 * time.Hour},
			ReadTimeout:  duration{10 * time.Second},
			WriteTimeout: duration{30 * time.Second},
		},
		Storage: Storage{
			Backend: "memory",
			MongoDB: "devfinder",
		},
		Cache: Cache{
			Backend:      "memory",
			PageCapacity: 128,
		},
		Search: Search{
			PerPage:       30,
			RatePerSecond: 1,
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", "devfinder", "config.toml"), nil
}

// Load reads configuration from path, falling back to defaults for a
// missing file, then applies environment overrides. An empty path uses
// DefaultPath.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults plus environment are enough.
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values with DEVFINDER_* environment variables.
// Secrets in particular should come from the environment, not the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("DEVFINDER_GITHUB_CLIENT_ID"); v != "" {
		c.GitHub.ClientID = v
	}
	if v := os.Getenv("DEVFINDER_GITHUB_CLIENT_SECRET"); v != "" {
		c.GitHub.ClientSecret = v
	}
	if v := os.Getenv("DEVFINDER_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("DEVFINDER_MONGO_URI"); v != "" {
		c.Storage.MongoURI = v
		c.Storage.Backend = "mongo"
	}
	if v := os.Getenv("DEVFINDER_REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("DEVFINDER_CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("DEVFINDER_PER_PAGE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.PerPage = n
		}
	}
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "memory", "mongo":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Cache.Backend {
	case "memory", "file", "redis", "none":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Storage.Backend == "mongo" && c.Storage.MongoURI == "" {
		return fmt.Errorf("storage backend mongo requires mongo_uri")
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache backend redis requires redis_addr")
	}
	if c.Search.PerPage < 1 || c.Search.PerPage > 100 {
		return fmt.Errorf("per_page must be in [1, 100], got %d", c.Search.PerPage)
	}
	return nil
}

// TTL returns the configured session lifetime.
func (s Server) TTL() time.Duration { return s.SessionTTL.Duration }
