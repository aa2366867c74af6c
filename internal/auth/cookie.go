package auth

import (
	"net/http"
	"time"
)

// SessionCookieName is the cookie that carries the session token.
const SessionCookieName = "sid"

// CookieManager writes and reads the session cookie.
//
// The cookie is HttpOnly (JavaScript cannot read it) and SameSite=Lax
// (not sent on cross-site POSTs). Secure is switched on in production,
// where the app is served over HTTPS.
type CookieManager struct {
	name   string
	ttl    time.Duration
	secure bool
}

func NewCookieManager(ttl time.Duration, secure bool) *CookieManager {
	return &CookieManager{name: SessionCookieName, ttl: ttl, secure: secure}
}

// Set stores token in the session cookie for the configured TTL.
func (c *CookieManager) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
		Expires:  time.Now().Add(c.ttl),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear tells the browser to drop the session cookie.
func (c *CookieManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Token returns the session token from the request, or "" if there is none.
func (c *CookieManager) Token(r *http.Request) string {
	cookie, err := r.Cookie(c.name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
