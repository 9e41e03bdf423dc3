// Package lists manages saved profile lists and saved searches.
//
// Lists collect developer profiles a user wants to keep; saved searches
// persist a search filter under a name so it can be replayed later. Both
// are scoped to an owner and backed by the store interfaces, so they work
// the same against the in-memory store and MongoDB.
package lists

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sourcingdenis/devfinder/pkg/errors"
	"github.com/sourcingdenis/devfinder/pkg/search"
	"github.com/sourcingdenis/devfinder/pkg/store"
)

// maxNameLength bounds list and saved-search names.
const maxNameLength = 100

// Service provides list and saved-search operations for one storage
// backend.
type Service struct {
	lists    store.ListStore
	searches store.SearchStore
	now      func() time.Time
}

// NewService creates a list service over the given stores.
func NewService(lists store.ListStore, searches store.SearchStore) *Service {
	return &Service{lists: lists, searches: searches, now: time.Now}
}

// CreateList creates an empty named list for the owner.
func (s *Service) CreateList(ctx context.Context, owner, name string) (*store.ListRecord, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	now := s.now()
	rec := &store.ListRecord{
		ID:        uuid.NewString(),
		Owner:     owner,
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.lists.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// List retrieves one list.
func (s *Service) List(ctx context.Context, owner, id string) (*store.ListRecord, error) {
	return s.lists.Get(ctx, owner, id)
}

// Lists retrieves every list the owner has.
func (s *Service) Lists(ctx context.Context, owner string) ([]store.ListRecord, error) {
	return s.lists.All(ctx, owner)
}

// RenameList changes a list's name.
func (s *Service) RenameList(ctx context.Context, owner, id, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	return s.lists.Rename(ctx, owner, id, strings.TrimSpace(name))
}

// DeleteList removes a list and its saved profiles.
func (s *Service) DeleteList(ctx context.Context, owner, id string) error {
	return s.lists.Delete(ctx, owner, id)
}

// SaveProfile adds an enriched search record to a list as a profile
// snapshot. Saving the same login again replaces the earlier snapshot.
func (s *Service) SaveProfile(ctx context.Context, owner, listID string, rec search.Record) error {
	if err := errors.ValidateUsername(rec.Login); err != nil {
		return err
	}
	profile := store.ProfileRecord{
		Login:       rec.Login,
		UserID:      rec.ID,
		Name:        rec.Name,
		AvatarURL:   rec.AvatarURL,
		Email:       rec.Email,
		EmailSource: rec.EmailSource,
		Location:    rec.Location,
		TopLanguage: rec.TopLanguage,
		SavedAt:     s.now(),
	}
	return s.lists.AddProfile(ctx, owner, listID, profile)
}

// RemoveProfile removes a profile from a list by login.
func (s *Service) RemoveProfile(ctx context.Context, owner, listID, login string) error {
	return s.lists.RemoveProfile(ctx, owner, listID, login)
}

// SaveSearch persists a filter under a name for later replay.
func (s *Service) SaveSearch(ctx context.Context, owner, name string, filter search.Filter) (*store.SavedSearchRecord, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := errors.ValidateQueryText(filter.Text); err != nil {
		return nil, err
	}

	data, err := json.Marshal(filter)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to serialize filter")
	}
	rec := &store.SavedSearchRecord{
		ID:         uuid.NewString(),
		Owner:      owner,
		Name:       strings.TrimSpace(name),
		FilterJSON: data,
		CreatedAt:  s.now(),
	}
	if err := s.searches.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// SavedSearches retrieves every saved search the owner has.
func (s *Service) SavedSearches(ctx context.Context, owner string) ([]store.SavedSearchRecord, error) {
	return s.searches.All(ctx, owner)
}

// DeleteSearch removes a saved search.
func (s *Service) DeleteSearch(ctx context.Context, owner, id string) error {
	return s.searches.Delete(ctx, owner, id)
}

// ReplaySearch loads a saved search and decodes its filter. The caller
// passes the filter to the fetcher; replaying does not itself issue API
// calls.
func (s *Service) ReplaySearch(ctx context.Context, owner, id string) (search.Filter, error) {
	rec, err := s.searches.Get(ctx, owner, id)
	if err != nil {
		return search.Filter{}, err
	}
	var filter search.Filter
	if err := json.Unmarshal(rec.FilterJSON, &filter); err != nil {
		return search.Filter{}, errors.Wrap(errors.ErrCodeInternal, err, "stored filter is corrupt")
	}
	return filter, nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New(errors.ErrCodeInvalidInput, "name cannot be empty")
	}
	if len(name) > maxNameLength {
		return errors.New(errors.ErrCodeInvalidInput, "name too long (max %d characters)", maxNameLength)
	}
	return nil
}
