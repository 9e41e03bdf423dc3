package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// EmailSources are the accepted provenance values for an enriched email.
var EmailSources = []string{"profile", "commitHistory", "manual", "generated"}

// ValidateUsername validates a GitHub username for safety and correctness.
// GitHub logins are alphanumeric with single hyphens, up to 39 characters;
// the validation is intentionally slightly looser to tolerate historical
// accounts, but rejects anything that could leak into a path or query.
func ValidateUsername(username string) error {
	if username == "" {
		return New(ErrCodeInvalidInput, "username cannot be empty")
	}

	if len(username) > 39 {
		return New(ErrCodeInvalidInput, "username too long (max 39 characters)")
	}

	for _, r := range username {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "username contains invalid characters")
		}
	}

	if strings.ContainsAny(username, "/\\?#%&") {
		return New(ErrCodeInvalidInput, "username contains invalid characters: %q", username)
	}

	return nil
}

// emailPattern approximates RFC 5322 addr-spec. Full RFC 5322 grammar is
// deliberately not implemented; obviously malformed addresses are what this
// guards against before any network or storage call is made.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)

// ValidateEmail validates an email address against an RFC-5322-approximating
// pattern. Returns a coded error so callers can fail fast before any I/O.
func ValidateEmail(email string) error {
	if email == "" {
		return New(ErrCodeInvalidEmail, "email cannot be empty")
	}

	if len(email) > 254 {
		return New(ErrCodeInvalidEmail, "email too long (max 254 characters)")
	}

	if !emailPattern.MatchString(email) {
		return New(ErrCodeInvalidEmail, "invalid email address: %q", email)
	}

	return nil
}

// ValidateEmailSource validates the provenance of an enriched email.
// The source must be one of the fixed enum values in EmailSources.
func ValidateEmailSource(source string) error {
	if source == "" {
		return New(ErrCodeInvalidSource, "email source cannot be empty")
	}

	for _, s := range EmailSources {
		if source == s {
			return nil
		}
	}
	return New(ErrCodeInvalidSource, "unknown email source: %q", source)
}

// ValidateConfidence validates a confidence score. Scores are normalized
// probabilities and must fall in [0, 1].
func ValidateConfidence(confidence float64) error {
	if confidence < 0 || confidence > 1 {
		return New(ErrCodeInvalidConfidence, "confidence must be in [0, 1], got %g", confidence)
	}
	return nil
}

// ValidateQueryText validates free-text search input.
// It rejects control characters and unreasonably long queries.
func ValidateQueryText(text string) error {
	const maxQueryLength = 256
	if len(text) > maxQueryLength {
		return New(ErrCodeInvalidFilter, "query too long (max %d characters)", maxQueryLength)
	}

	for _, r := range text {
		if r != ' ' && unicode.IsControl(r) {
			return New(ErrCodeInvalidFilter, "query contains invalid control characters")
		}
	}

	return nil
}
