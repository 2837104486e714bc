package username

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinLength = 3
	MaxLength = 30
)

// Reasons returned to the caller, in check order.
const (
	ReasonRequired = "Username is required"
	ReasonLength   = "Username must be between 3 and 30 characters"
	ReasonCharset  = "Username can only contain letters, numbers, underscores, and hyphens"
	ReasonReserved = "This username is reserved"
	ReasonTaken    = "Username is already taken"
)

var pattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Check validates the shape of name without touching the store.
// It returns "" when name is acceptable, otherwise the first failing reason.
func Check(name string) string {
	if name == "" {
		return ReasonRequired
	}
	if n := utf8.RuneCountInString(name); n < MinLength || n > MaxLength {
		return ReasonLength
	}
	if !pattern.MatchString(name) {
		return ReasonCharset
	}
	if IsReserved(name) {
		return ReasonReserved
	}
	return ""
}

// Normalize is the key used for case-insensitive uniqueness.
func Normalize(name string) string {
	return strings.ToLower(name)
}
