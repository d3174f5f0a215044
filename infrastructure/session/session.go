// Package session owns the browser session cookie. The token it carries
// is the primary key of the sessions table; expiry is enforced both here
// (cookie max-age) and server-side on every request.
package session

import (
	"net/http"
	"time"
)

const CookieName = "costdesk_session"

// Sessions cover a long working day; editors re-login the next morning
// rather than holding sessions open for weeks.
const sessionLifetime = 10 * time.Hour

func SessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   false,
	}
}

func DefaultExpiry() time.Time {
	return time.Now().Add(sessionLifetime)
}
