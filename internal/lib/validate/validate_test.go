package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postify/internal/model"
)

func TestStruct(t *testing.T) {
	long := strings.Repeat("x", 201)
	bad := "not a url"

	tests := []struct {
		name    string
		in      any
		wantMsg string
	}{
		{
			name: "valid post",
			in:   model.CreatePostRequest{Title: "Hello", Content: "Body", Status: "published"},
		},
		{
			name:    "title too long",
			in:      model.CreatePostRequest{Title: long, Content: "Body"},
			wantMsg: "title must be at most 200 characters",
		},
		{
			name:    "bad status",
			in:      model.CreatePostRequest{Title: "a", Content: "b", Status: "archived"},
			wantMsg: "status must be one of: draft published",
		},
		{
			name:    "bad featured image",
			in:      model.CreatePostRequest{Title: "a", Content: "b", FeaturedImage: &bad},
			wantMsg: "featured_image must be a valid URL",
		},
		{
			name:    "short password",
			in:      model.RegisterRequest{Username: "alice", Email: "a@example.com", Password: "123"},
			wantMsg: "password must be at least 6 characters",
		},
		{
			name:    "bad email",
			in:      model.RegisterRequest{Username: "alice", Email: "nope", Password: "123456"},
			wantMsg: "email must be a valid email address",
		},
		{
			name:    "bad theme color",
			in:      model.Theme{PrimaryColor: "blue"},
			wantMsg: "primary_color must be a hex color",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.wantMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrValidation))
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}
