// Package search turns developer-search filters into GitHub API calls and
// assembles paginated, per-user-enriched result pages.
//
// A page fetch runs the search call, then fans out detail, top-language,
// and email-enrichment lookups for every returned user with bounded
// concurrency, merging positionally so output order matches the API's
// result order. Per-user failures degrade single records instead of
// failing the page. Successful pages are memoized in a bounded LRU cache.
package search

import "strings"

// Filter describes one developer search.
type Filter struct {
	// Text is the free-text part of the query.
	Text string `json:"text,omitempty"`

	// Language restricts results to users whose repositories use the
	// given language.
	Language string `json:"language,omitempty"`

	// Locations restricts results to the given locations. Each entry
	// becomes its own location qualifier.
	Locations []string `json:"locations,omitempty"`

	// Hireable restricts results to users flagged as hireable.
	Hireable bool `json:"hireable,omitempty"`

	// Sort is the result ordering: "followers", "repositories", or
	// "joined". Empty means best match.
	Sort string `json:"sort,omitempty"`

	// Order is "asc" or "desc". Only meaningful with Sort.
	Order string `json:"order,omitempty"`

	// Page is the 1-based page number. Zero means page 1.
	Page int `json:"page,omitempty"`

	// PerPage is the page size. Zero means DefaultPerPage.
	PerPage int `json:"per_page,omitempty"`
}

// DefaultPerPage is the page size used when the filter does not set one.
const DefaultPerPage = 30

// Query builds the GitHub search query string for the filter.
//
// Clause order is fixed (text, language, locations, hireable) so that
// structurally equal filters always produce identical strings. Cache keys
// and replayed saved searches depend on this determinism.
func (f Filter) Query() string {
	var parts []string
	if text := strings.TrimSpace(f.Text); text != "" {
		parts = append(parts, text)
	}
	if f.Language != "" {
		parts = append(parts, "language:"+f.Language)
	}
	for _, loc := range f.Locations {
		if loc == "" {
			continue
		}
		parts = append(parts, "location:"+quoteIfSpaced(loc))
	}
	if f.Hireable {
		parts = append(parts, "is:hireable")
	}
	return strings.Join(parts, " ")
}

// page returns the effective 1-based page number.
func (f Filter) page() int {
	if f.Page < 1 {
		return 1
	}
	return f.Page
}

// perPage returns the effective page size.
func (f Filter) perPage() int {
	if f.PerPage < 1 {
		return DefaultPerPage
	}
	return f.PerPage
}

// quoteIfSpaced wraps multi-word qualifier values in quotes so the API
// treats them as a single value.
func quoteIfSpaced(v string) string {
	if strings.ContainsAny(v, " \t") {
		return `"` + v + `"`
	}
	return v
}
