// Package username owns the rules shared by signup validation and the
// username path router: the reserved word set and the username shape.
package username

import "strings"

// reserved is the single deny-list for usernames and first path segments.
// A word here can never be registered and never routes to a blog.
var reserved = map[string]struct{}{}

func init() {
	for _, group := range [][]string{
		// account and brand words
		{"admin", "api", "www", "mail", "ftp", "blog", "support", "help", "about",
			"contact", "terms", "privacy", "login", "signup", "auth", "dashboard",
			"profile", "settings", "account", "user", "postify"},
		// static and framework paths
		{"_next", "favicon.ico", "assets", "images", "public", "robots.txt",
			"sitemap.xml", "pricing", "features", "careers", "status"},
		// single-segment routes served by this API
		{"posts", "upload", "check-username", "health", "metrics", "me",
			"billing", "stripe", "users"},
	} {
		for _, w := range group {
			reserved[w] = struct{}{}
		}
	}
}

// IsReserved reports whether word is in the reserved set, ignoring case.
func IsReserved(word string) bool {
	_, ok := reserved[strings.ToLower(word)]
	return ok
}

// Reserved returns a copy of the reserved set.
func Reserved() []string {
	out := make([]string, 0, len(reserved))
	for w := range reserved {
		out = append(out, w)
	}
	return out
}
