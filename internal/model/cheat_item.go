package model

import "time"

// Categories offered by the client. The server stores any category string;
// this list is informational.
const (
	CategoryCode     = "Code"
	CategoryCommand  = "Command"
	CategoryRecipe   = "Recipe"
	CategoryShortcut = "Shortcut"
	CategoryOther    = "Other"

	DefaultCategory = CategoryOther
)

var Categories = []string{CategoryCode, CategoryCommand, CategoryRecipe, CategoryShortcut, CategoryOther}

// TimestampLayout is the ISO-8601 form used for item timestamps,
// e.g. 2024-05-01T12:30:00.000Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// CheatItem is a user-owned markdown note.
//
// CreatedAt is omitted from update responses, so it is tagged omitempty.
type CheatItem struct {
	ID        string   `json:"id"`
	UserID    int64    `json:"-"`
	Title     string   `json:"title"`
	Category  string   `json:"category"`
	Tags      []string `json:"tags"`
	Content   string   `json:"content"`
	CreatedAt string   `json:"createdAt,omitempty"`
	UpdatedAt string   `json:"updatedAt"`
}

// FormatTimestamp renders t in TimestampLayout, always in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
