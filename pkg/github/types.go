package github

import "time"

// User is the slim record returned by the search endpoint.
type User struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
	Type      string `json:"type"`
}

// UserDetail is the full record returned by GET /users/{login}.
type UserDetail struct {
	ID        int64      `json:"id"`
	Login     string     `json:"login"`
	Name      string     `json:"name"`
	AvatarURL string     `json:"avatar_url"`
	HTMLURL   string     `json:"html_url"`
	Email     string     `json:"email"`
	Company   string     `json:"company"`
	Blog      string     `json:"blog"`
	Location  string     `json:"location"`
	Bio       string     `json:"bio"`
	Hireable  bool       `json:"hireable"`
	PublicRepos int      `json:"public_repos"`
	Followers int        `json:"followers"`
	Following int        `json:"following"`
	CreatedAt *time.Time `json:"created_at"`
}

// Repo is a repository as returned by GET /users/{login}/repos.
type Repo struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Language string `json:"language"`
	Stars    int    `json:"stargazers_count"`
	Fork     bool   `json:"fork"`
}

// SearchResult is the response of GET /search/users.
type SearchResult struct {
	TotalCount        int    `json:"total_count"`
	IncompleteResults bool   `json:"incomplete_results"`
	Items             []User `json:"items"`
}

// Event is a public event from GET /users/{login}/events/public.
// Only push events carry commit authorship; other payload fields are
// ignored.
type Event struct {
	Type    string `json:"type"`
	Payload struct {
		Commits []Commit `json:"commits"`
	} `json:"payload"`
}

// Commit is the abbreviated commit record embedded in push events.
type Commit struct {
	SHA    string `json:"sha"`
	Author struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"author"`
	Message string `json:"message"`
}

// Rate is a single rate-limit bucket from GET /rate_limit.
type Rate struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	Reset     int64 `json:"reset"`
}

// rateLimitResponse is the envelope of GET /rate_limit. Only the core and
// search buckets are consumed.
type rateLimitResponse struct {
	Resources struct {
		Core   Rate `json:"core"`
		Search Rate `json:"search"`
	} `json:"resources"`
}

// OAuthConfig holds OAuth configuration.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// OAuthToken represents an OAuth access token response.
type OAuthToken struct {
	AccessToken           string `json:"access_token"`
	TokenType             string `json:"token_type"`
	Scope                 string `json:"scope"`
	RefreshToken          string `json:"refresh_token"`
	ExpiresIn             int64  `json:"expires_in"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in"`
}

// ExpiresAt converts ExpiresIn into an absolute time relative to now.
// Returns the zero time for tokens that do not expire.
func (t *OAuthToken) ExpiresAt(now time.Time) time.Time {
	if t.ExpiresIn <= 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(t.ExpiresIn) * time.Second)
}
