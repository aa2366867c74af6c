package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"trims", "  hello  ", 10, "hello"},
		{"truncates", "abcdef", 3, "abc"},
		{"trims before truncating", "   abcdef", 3, "abc"},
		{"counts runes not bytes", "héllo wörld", 5, "héllo"},
		{"whitespace only", " \t\n ", 10, ""},
		{"exact length kept", "abc", 3, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitize(tt.in, tt.max))
		})
	}
}

func TestValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"u@x.com", true},
		{"first.last+tag@sub.example.org", true},
		{"no-at-sign.com", false},
		{"u@nodot", false},
		{"@x.com", false},
		{"u@@x.com", false},
		{"u @x.com", false},
		{"", false},
		{strings.Repeat("a", 249) + "@x.com", true},
		{strings.Repeat("a", 250) + "@x.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, validEmail(tt.email))
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", normalizeEmail("  User@Example.COM "))
}

func TestValidPasswordLength(t *testing.T) {
	assert.False(t, validPasswordLength("1234567"))
	assert.True(t, validPasswordLength("12345678"))
	assert.True(t, validPasswordLength(strings.Repeat("x", 128)))
	assert.False(t, validPasswordLength(strings.Repeat("x", 129)))
	assert.True(t, validPasswordLength("pässwörd"), "8 runes even though more bytes")
}

func TestSanitizeTags(t *testing.T) {
	t.Run("drops blanks and keeps order", func(t *testing.T) {
		got := sanitizeTags([]string{"b", "  ", "a", "", " c "})
		assert.Equal(t, []string{"b", "a", "c"}, got)
	})

	t.Run("caps at twenty after dropping blanks", func(t *testing.T) {
		var in []string
		for i := 0; i < 5; i++ {
			in = append(in, "a", "b", "a", "  ", "c")
		}
		got := sanitizeTags(in)
		assert.Len(t, got, MaxTags)
		assert.Equal(t, []string{"a", "b", "a", "c", "a"}, got[:5])
		assert.NotContains(t, got, "  ")
		assert.NotContains(t, got, "")
	})

	t.Run("truncates long tags", func(t *testing.T) {
		got := sanitizeTags([]string{strings.Repeat("t", 80)})
		assert.Equal(t, []string{strings.Repeat("t", 50)}, got)
	})

	t.Run("nil gives empty slice", func(t *testing.T) {
		got := sanitizeTags(nil)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestCleanItemID(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"a1b2c3d4e5f6a7b8c9", "a1b2c3d4e5f6a7b8c9", true},
		{"  abc123  ", "abc123", true},
		{"ABC123", "ABC123", false},
		{"abc-123", "abc-123", false},
		{"1; DROP TABLE cheat_items", "1; DROP TABLE cheat_items", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := cleanItemID(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
