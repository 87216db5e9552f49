package chat

import "strings"

// Identity is the logged-in user as returned by the login endpoint.
type Identity struct {
	UserID string `json:"user_id" yaml:"user_id"`
	Email  string `json:"email" yaml:"email"`
}

// Valid reports whether the identity carries a usable user id.
func (i Identity) Valid() bool {
	return strings.TrimSpace(i.UserID) != ""
}
