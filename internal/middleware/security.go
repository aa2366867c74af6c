package middleware

import (
	"net/http"
	"strings"
)

// contentSecurityPolicy allows the SPA's own assets plus the font and CDN
// hosts the frontend loads from.
var contentSecurityPolicy = strings.Join([]string{
	"default-src 'self'",
	"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com https://cdn.tailwindcss.com",
	"font-src 'self' https://fonts.gstatic.com",
	"script-src 'self' 'unsafe-inline' https://cdn.tailwindcss.com https://esm.sh",
	"img-src 'self' data: https: http:",
	"connect-src 'self'",
	"frame-ancestors 'self'",
	"object-src 'none'",
	"base-uri 'self'",
}, "; ")

// SecurityHeaders sets the usual hardening headers on every response.
// HSTS is only sent in production, where the site is served over HTTPS.
func SecurityHeaders(production bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Content-Security-Policy", contentSecurityPolicy)
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Cross-Origin-Opener-Policy", "same-origin")
			if production {
				h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}
