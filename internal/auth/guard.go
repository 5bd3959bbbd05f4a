package auth

import "strings"

// KeyValidator determines whether a supplied API key is authorized.
type KeyValidator interface {
	IsValidKey(key string) bool
}

// Guard applies the header policy on top of a KeyValidator.
//
// With RequireHeader set, a request must carry a valid key. Without it, a
// request that carries no key at all is let through, but a request that carries
// a wrong key is still rejected.
type Guard struct {
	Validator     KeyValidator
	RequireHeader bool
}

// Authorize reports whether a request with the given header value may proceed.
func (g Guard) Authorize(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return !g.RequireHeader
	}
	if g.Validator == nil {
		return false
	}
	return g.Validator.IsValidKey(key)
}
