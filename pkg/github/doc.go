// Package github provides a client for the GitHub REST API.
//
// The client covers the endpoints DevFinder needs: user search, per-user
// detail, repositories, public events, and the rate-limit probe. Every
// response updates a shared [RateBudget] from the x-ratelimit-* headers so
// callers can check the remaining quota without an extra round trip.
//
// Authentication is pluggable via [TokenSource]; pass [StaticToken] for a
// fixed token or a token manager for refresh-on-expiry behavior.
//
// The OAuth device flow and refresh-token grant live in oauth.go.
package github
