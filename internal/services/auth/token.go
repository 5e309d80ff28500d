package auth

import (
	"net/http"
	"strings"
)

// CookieName is the cookie login sets and browsers send on websocket handshakes
const CookieName = "auth_token"

// legacyCookieName is still accepted for API clients that set it
const legacyCookieName = "session"

// TokenFromRequest extracts a session token from the Authorization header,
// the auth cookies, or the token query parameter, in that order
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}

	for _, name := range []string{CookieName, legacyCookieName} {
		if cookie, err := r.Cookie(name); err == nil && cookie.Value != "" {
			return cookie.Value
		}
	}

	// Browsers cannot set headers on a websocket handshake
	return r.URL.Query().Get("token")
}
