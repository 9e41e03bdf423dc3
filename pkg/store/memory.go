package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sourcingdenis/devfinder/pkg/errors"
)

// Memory is an in-memory implementation of all four stores.
// Used by tests and the single-user CLI; nothing survives a restart.
// Memory is safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	tokens   map[string]TokenRecord // key: userID + "\x00" + provider
	emails   map[string]EmailRecord // key: username
	lists    map[string]ListRecord  // key: id
	searches map[string]SavedSearchRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tokens:   make(map[string]TokenRecord),
		emails:   make(map[string]EmailRecord),
		lists:    make(map[string]ListRecord),
		searches: make(map[string]SavedSearchRecord),
	}
}

func tokenKey(userID, provider string) string { return userID + "\x00" + provider }

// Get retrieves a token record.
func (m *Memory) Get(ctx context.Context, userID, provider string) (*TokenRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.tokens[tokenKey(userID, provider)]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "no token for %s/%s", userID, provider)
	}
	return &rec, nil
}

// Put upserts a token record.
func (m *Memory) Put(ctx context.Context, rec *TokenRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *rec
	stored.UpdatedAt = time.Now()
	m.tokens[tokenKey(rec.UserID, rec.Provider)] = stored
	return nil
}

// Delete removes a token record.
func (m *Memory) Delete(ctx context.Context, userID, provider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, tokenKey(userID, provider))
	return nil
}

// Emails returns the EmailStore view of the memory store.
func (m *Memory) Emails() EmailStore { return (*memoryEmails)(m) }

// Lists returns the ListStore view of the memory store.
func (m *Memory) Lists() ListStore { return (*memoryLists)(m) }

// Searches returns the SearchStore view of the memory store.
func (m *Memory) Searches() SearchStore { return (*memorySearches)(m) }

// memoryEmails implements EmailStore over the shared maps. A separate type
// is needed because TokenStore and EmailStore both declare Get.
type memoryEmails Memory

func (m *memoryEmails) Get(ctx context.Context, username string) (*EmailRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.emails[username]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "no enriched email for %s", username)
	}
	return &rec, nil
}

func (m *memoryEmails) Create(ctx context.Context, rec *EmailRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.emails[rec.Username]; exists {
		return errors.New(errors.ErrCodeStorageConflict, "email row for %s already exists", rec.Username)
	}

	stored := *rec
	stored.Version = 1
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.emails[rec.Username] = stored
	rec.Version = stored.Version
	return nil
}

func (m *memoryEmails) Update(ctx context.Context, rec *EmailRecord, lastSeenVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.emails[rec.Username]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "no enriched email for %s", rec.Username)
	}
	if current.Version != lastSeenVersion {
		return errors.New(errors.ErrCodeStorageConflict,
			"version mismatch for %s: stored %d, last seen %d", rec.Username, current.Version, lastSeenVersion)
	}

	stored := *rec
	stored.Version = current.Version + 1
	stored.CreatedAt = current.CreatedAt
	stored.UpdatedAt = time.Now()
	m.emails[rec.Username] = stored
	rec.Version = stored.Version
	return nil
}

// memoryLists implements ListStore over the shared maps.
type memoryLists Memory

func (m *memoryLists) Create(ctx context.Context, rec *ListRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	stored := *rec
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.lists[rec.ID] = stored
	return nil
}

func (m *memoryLists) Get(ctx context.Context, owner, id string) (*ListRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(owner, id)
}

func (m *memoryLists) getLocked(owner, id string) (*ListRecord, error) {
	rec, ok := m.lists[id]
	if !ok || rec.Owner != owner {
		return nil, errors.New(errors.ErrCodeListNotFound, "list %s not found", id)
	}
	return &rec, nil
}

func (m *memoryLists) All(ctx context.Context, owner string) ([]ListRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ListRecord
	for _, rec := range m.lists {
		if rec.Owner == owner {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryLists) Rename(ctx context.Context, owner, id, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.getLocked(owner, id)
	if err != nil {
		return err
	}
	rec.Name = name
	rec.UpdatedAt = time.Now()
	m.lists[id] = *rec
	return nil
}

func (m *memoryLists) Delete(ctx context.Context, owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.getLocked(owner, id); err != nil {
		return err
	}
	delete(m.lists, id)
	return nil
}

func (m *memoryLists) AddProfile(ctx context.Context, owner, id string, profile ProfileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.getLocked(owner, id)
	if err != nil {
		return err
	}

	kept := rec.Profiles[:0]
	for _, p := range rec.Profiles {
		if p.Login != profile.Login {
			kept = append(kept, p)
		}
	}
	rec.Profiles = append(kept, profile)
	rec.UpdatedAt = time.Now()
	m.lists[id] = *rec
	return nil
}

func (m *memoryLists) RemoveProfile(ctx context.Context, owner, id, login string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.getLocked(owner, id)
	if err != nil {
		return err
	}

	kept := rec.Profiles[:0]
	for _, p := range rec.Profiles {
		if p.Login != login {
			kept = append(kept, p)
		}
	}
	rec.Profiles = kept
	rec.UpdatedAt = time.Now()
	m.lists[id] = *rec
	return nil
}

// memorySearches implements SearchStore over the shared maps.
type memorySearches Memory

func (m *memorySearches) Save(ctx context.Context, rec *SavedSearchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *rec
	stored.CreatedAt = time.Now()
	m.searches[rec.ID] = stored
	return nil
}

func (m *memorySearches) Get(ctx context.Context, owner, id string) (*SavedSearchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.searches[id]
	if !ok || rec.Owner != owner {
		return nil, errors.New(errors.ErrCodeSearchNotFound, "saved search %s not found", id)
	}
	return &rec, nil
}

func (m *memorySearches) All(ctx context.Context, owner string) ([]SavedSearchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []SavedSearchRecord
	for _, rec := range m.searches {
		if rec.Owner == owner {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memorySearches) Delete(ctx context.Context, owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.searches[id]
	if !ok || rec.Owner != owner {
		return errors.New(errors.ErrCodeSearchNotFound, "saved search %s not found", id)
	}
	delete(m.searches, rec.ID)
	return nil
}

// Interface checks.
var (
	_ TokenStore  = (*Memory)(nil)
	_ EmailStore  = (*memoryEmails)(nil)
	_ ListStore   = (*memoryLists)(nil)
	_ SearchStore = (*memorySearches)(nil)
)
