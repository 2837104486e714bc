package middleware

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"postify/internal/username"
)

// BlogPrefix is where the blog view is mounted.
const BlogPrefix = "/blog/"

var fileLike = regexp.MustCompile(`\.[A-Za-z0-9]+$`)

// BlogPath reports whether path is a bare username and returns the blog
// view path it maps to. The segment keeps its original casing.
//
// Only single-segment paths qualify. Reserved words and file-like segments
// such as "logo.png" are never treated as usernames. Whether the user exists
// is left to the blog handler.
func BlogPath(path string) (string, bool) {
	segment := strings.TrimPrefix(path, "/")
	if segment == "" || strings.Contains(segment, "/") {
		return "", false
	}
	if username.IsReserved(segment) {
		return "", false
	}
	if fileLike.MatchString(segment) {
		return "", false
	}
	return BlogPrefix + segment, true
}

// BlogRewrite serves /{username} from the blog view without a redirect.
// It must run before routing.
func BlogRewrite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rewritten, ok := BlogPath(r.URL.Path); ok {
			r2 := r.Clone(r.Context())
			r2.URL.Path = rewritten
			if r.URL.RawPath != "" {
				r2.URL.RawPath = BlogPrefix + url.PathEscape(strings.TrimPrefix(r.URL.Path, "/"))
			}
			next.ServeHTTP(w, r2)
			return
		}
		next.ServeHTTP(w, r)
	})
}
