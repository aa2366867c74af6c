package service

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Input limits. Lengths are counted in characters (runes), not bytes.
const (
	MaxEmailLength       = 255
	MinPasswordLength    = 8
	MaxPasswordLength    = 128
	MaxAccountNameLength = 50

	MaxTitleLength    = 200
	MaxCategoryLength = 50
	MaxTagLength      = 50
	MaxTags           = 20
	MaxContentLength  = 100000
	MaxItemIDLength   = 50
)

var (
	// Deliberately loose: something@something.something, no whitespace.
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	itemIDPattern = regexp.MustCompile(`^[a-f0-9]+$`)

	// Characters that would need escaping if an account name were ever
	// rendered as HTML.
	accountNameForbidden = regexp.MustCompile(`[<>"'&]`)
)

// sanitize trims surrounding whitespace and truncates to max characters.
func sanitize(s string, max int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// normalizeEmail lower-cases and trims an email address. It does not
// truncate: an overlong address is rejected, not shortened into a
// different one.
func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validEmail(email string) bool {
	return utf8.RuneCountInString(email) <= MaxEmailLength && emailPattern.MatchString(email)
}

func validPasswordLength(password string) bool {
	n := utf8.RuneCountInString(password)
	return n >= MinPasswordLength && n <= MaxPasswordLength
}

// sanitizeTags trims and truncates each tag, drops blanks and keeps at most
// MaxTags, preserving order. Duplicates are kept as given.
func sanitizeTags(tags []string) []string {
	out := make([]string, 0, min(len(tags), MaxTags))
	for _, tag := range tags {
		if len(out) == MaxTags {
			break
		}
		if tag = sanitize(tag, MaxTagLength); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// cleanItemID returns the sanitized id and whether it has the shape of an
// item id (lowercase hex).
func cleanItemID(id string) (string, bool) {
	id = sanitize(id, MaxItemIDLength)
	return id, itemIDPattern.MatchString(id)
}
