// Package store defines DevFinder's persistence interfaces and records.
//
// Four stores back the application:
//   - [TokenStore]: OAuth provider tokens, one row per (user, provider)
//   - [EmailStore]: enriched emails with optimistic-concurrency versioning
//   - [ListStore]: user-defined lists of saved profiles
//   - [SearchStore]: saved search queries for replay
//
// Two implementations are provided: in-memory (tests, single-user CLI) and
// MongoDB (hosted deployments). Implementations return coded errors from
// pkg/errors: NOT_FOUND for missing rows and STORAGE_CONFLICT for version
// mismatches or uniqueness violations, so callers can retry conflicts
// without inspecting backend-specific error strings.
package store

import (
	"context"
	"encoding/json"
	"time"
)

// TokenRecord is a persisted OAuth provider token.
// (UserID, Provider) is unique: a second Put for the same pair overwrites.
type TokenRecord struct {
	UserID       string    `bson:"user_id" json:"user_id"`
	Provider     string    `bson:"provider" json:"provider"`
	AccessToken  string    `bson:"access_token" json:"access_token"`
	RefreshToken string    `bson:"refresh_token,omitempty" json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// Expired reports whether the token's expiry has passed at the given time.
// Tokens without an expiry never expire.
func (r *TokenRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// EmailRecord is the authoritative enriched email for a username.
// Version starts at 1 on creation and increments on every successful
// update; updates are conditioned on the version being unchanged since
// read (optimistic concurrency).
type EmailRecord struct {
	Username   string    `bson:"github_username" json:"github_username"`
	Email      string    `bson:"email" json:"email"`
	Source     string    `bson:"source" json:"source"`
	Confidence float64   `bson:"confidence" json:"confidence"`
	Version    int64     `bson:"version" json:"version"`
	EnrichedBy string    `bson:"enriched_by,omitempty" json:"enriched_by,omitempty"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`
}

// ProfileRecord is a snapshot of a developer profile saved into a list.
type ProfileRecord struct {
	Login       string    `bson:"login" json:"login"`
	UserID      int64     `bson:"user_id" json:"user_id"`
	Name        string    `bson:"name,omitempty" json:"name,omitempty"`
	AvatarURL   string    `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	Email       string    `bson:"email,omitempty" json:"email,omitempty"`
	EmailSource string    `bson:"email_source,omitempty" json:"email_source,omitempty"`
	Location    string    `bson:"location,omitempty" json:"location,omitempty"`
	TopLanguage string    `bson:"top_language,omitempty" json:"top_language,omitempty"`
	SavedAt     time.Time `bson:"saved_at" json:"saved_at"`
}

// ListRecord is a user-defined list of saved profiles.
type ListRecord struct {
	ID        string          `bson:"_id" json:"id"`
	Owner     string          `bson:"owner" json:"owner"`
	Name      string          `bson:"name" json:"name"`
	Profiles  []ProfileRecord `bson:"profiles" json:"profiles"`
	CreatedAt time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time       `bson:"updated_at" json:"updated_at"`
}

// SavedSearchRecord is a persisted search query for later replay.
// FilterJSON is the serialized search filter; the store treats it as
// opaque so the persistence layer does not depend on the search package.
type SavedSearchRecord struct {
	ID         string          `bson:"_id" json:"id"`
	Owner      string          `bson:"owner" json:"owner"`
	Name       string          `bson:"name" json:"name"`
	FilterJSON json.RawMessage `bson:"filter_json" json:"filter_json"`
	CreatedAt  time.Time       `bson:"created_at" json:"created_at"`
}

// TokenStore persists OAuth provider tokens.
type TokenStore interface {
	// Get retrieves the token for (userID, provider).
	// Returns a NOT_FOUND coded error when absent.
	Get(ctx context.Context, userID, provider string) (*TokenRecord, error)

	// Put upserts the token for (userID, provider).
	Put(ctx context.Context, rec *TokenRecord) error

	// Delete removes the token. Deleting a missing token is not an error.
	Delete(ctx context.Context, userID, provider string) error
}

// EmailStore persists enriched emails with optimistic concurrency.
type EmailStore interface {
	// Get retrieves the record for a username.
	// Returns a NOT_FOUND coded error when absent.
	Get(ctx context.Context, username string) (*EmailRecord, error)

	// Create inserts a new record with Version forced to 1.
	// Returns a STORAGE_CONFLICT coded error if the username already exists.
	Create(ctx context.Context, rec *EmailRecord) error

	// Update applies rec only if the stored version equals lastSeenVersion,
	// incrementing the version on success.
	// Returns a STORAGE_CONFLICT coded error on a version mismatch.
	Update(ctx context.Context, rec *EmailRecord, lastSeenVersion int64) error
}

// ListStore persists user-defined profile lists.
type ListStore interface {
	Create(ctx context.Context, rec *ListRecord) error
	Get(ctx context.Context, owner, id string) (*ListRecord, error)
	All(ctx context.Context, owner string) ([]ListRecord, error)
	Rename(ctx context.Context, owner, id, name string) error
	Delete(ctx context.Context, owner, id string) error

	// AddProfile appends a profile to a list, replacing any existing entry
	// with the same login.
	AddProfile(ctx context.Context, owner, id string, profile ProfileRecord) error

	// RemoveProfile removes a profile by login.
	RemoveProfile(ctx context.Context, owner, id, login string) error
}

// SearchStore persists saved searches.
type SearchStore interface {
	Save(ctx context.Context, rec *SavedSearchRecord) error
	Get(ctx context.Context, owner, id string) (*SavedSearchRecord, error)
	All(ctx context.Context, owner string) ([]SavedSearchRecord, error)
	Delete(ctx context.Context, owner, id string) error
}
