package username

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"valid", "alice", ""},
		{"valid with digits and symbols", "a_l-1ce", ""},
		{"mixed case", "AliceSmith", ""},
		{"exactly three", "abc", ""},
		{"exactly thirty", strings.Repeat("a", 30), ""},
		{"empty", "", ReasonRequired},
		{"too short", "ab", ReasonLength},
		{"too long", strings.Repeat("a", 31), ReasonLength},
		{"space", "ali ce", ReasonCharset},
		{"dot", "ali.ce", ReasonCharset},
		{"slash", "ali/ce", ReasonCharset},
		{"unicode", "alicé", ReasonCharset},
		{"two accented letters", "éé", ReasonLength},
		{"three accented letters", "ééé", ReasonCharset},
		{"thirty multibyte letters", strings.Repeat("é", 30), ReasonCharset},
		{"reserved", "dashboard", ReasonReserved},
		{"reserved upper", "ADMIN", ReasonReserved},
		{"route word", "check-username", ReasonReserved},
		{"router word", "pricing", ReasonReserved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Check(tt.in))
		})
	}
}

func TestReservedUsernamesAreAllReserved(t *testing.T) {
	for _, w := range []string{
		"admin", "api", "www", "mail", "ftp", "blog", "support", "help", "about",
		"contact", "terms", "privacy", "login", "signup", "auth", "dashboard",
		"profile", "settings", "account", "user", "postify",
	} {
		assert.True(t, IsReserved(w), w)
		assert.True(t, IsReserved(strings.ToUpper(w)), w)
	}
}

func TestRouterPathsAreAllReserved(t *testing.T) {
	for _, w := range []string{
		"api", "_next", "favicon.ico", "assets", "images", "blog", "auth",
		"dashboard", "pricing", "features", "about", "contact", "public",
		"robots.txt", "sitemap.xml",
	} {
		assert.True(t, IsReserved(w), w)
	}
}

func TestReservedReturnsCopy(t *testing.T) {
	words := Reserved()
	assert.Contains(t, words, "postify")
	words[0] = "mutated"
	assert.False(t, IsReserved("mutated"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "alice", Normalize("AlIcE"))
}
