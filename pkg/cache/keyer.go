package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Keyer generates stable cache keys for memoized search pages.
// Implementations must be deterministic: structurally equal inputs produce
// identical keys, which is what makes memoized pages reusable.
type Keyer interface {
	// SearchKey generates a key for a memoized search page. The filter is
	// any JSON-marshalable value; salt busts the cache when non-empty.
	SearchKey(filter any, salt string) string
}

// DefaultKeyer is the standard key generator.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard key generator.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// SearchKey generates a key for search-page memoization.
func (k *DefaultKeyer) SearchKey(filter any, salt string) string {
	return hashKey("search", filter, salt)
}

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation.
// When several users share one cache backend, giving each user a scoped
// keyer keeps results from leaking between them.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer that prepends prefix to every generated
// key. A nil inner falls back to the default keyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// SearchKey generates a prefixed key for search-page memoization.
func (k *ScopedKeyer) SearchKey(filter any, salt string) string {
	return k.prefix + k.inner.SearchKey(filter, salt)
}

// hashKey hashes the components into a "prefix:hex" key. The full SHA-256
// digest is kept to rule out collisions between distinct filters.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}
