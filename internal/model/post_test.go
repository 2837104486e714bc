package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  Leading and trailing  ", "leading-and-trailing"},
		{"Go 1.24: what's new?!", "go-1-24-what-s-new"},
		{"multiple---dashes___here", "multiple-dashes-here"},
		{"Café au lait", "caf-au-lait"},
		{"!!!", ""},
		{"already-a-slug", "already-a-slug"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestParsePostStatus(t *testing.T) {
	s, ok := ParsePostStatus("")
	assert.True(t, ok)
	assert.Equal(t, PostDraft, s)

	s, ok = ParsePostStatus("published")
	assert.True(t, ok)
	assert.Equal(t, PostPublished, s)

	_, ok = ParsePostStatus("archived")
	assert.False(t, ok)
}

func TestUser_PublicHidesPrivateFields(t *testing.T) {
	bio := "hi"
	u := User{ID: 1, Username: "Alice", Email: "a@example.com", PasswordHashed: "x", Bio: &bio, Theme: DefaultTheme()}

	p := u.Public()
	assert.Equal(t, "Alice", p.Username)
	assert.Equal(t, &bio, p.Bio)
	assert.Equal(t, "#3B82F6", p.Theme.PrimaryColor)
}
