package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/reversecheats/internal/apperror"
	"github.com/sakif/reversecheats/internal/model"
)

// contextKey is an unexported type used for context keys in this package.
// Only this package can create a key of type contextKey, so no other
// package can read or shadow the values stored under it.
type contextKey string

const sessionKey contextKey = "session"

// Authenticator resolves a session token to a live session.
//
// Implementations return apperror.ErrUnauthenticated for an empty token,
// apperror.ErrInvalidSession for an unknown one and
// apperror.ErrSessionExpired (after deleting the row) for an expired one.
// service.AuthService is the production implementation.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Session, error)
}

// RequireSession is a middleware that enforces a valid session on protected
// routes.
//
// It reads the token from the session cookie and asks the Authenticator to
// resolve it. On success the session (with the owner's identity) is stored
// in the request context for handlers to read via SessionFromContext.
//
// On failure the chain stops:
//   - unauthenticated / invalid / expired → 401; for invalid and expired
//     tokens the cookie is also cleared so the browser stops sending it
//   - anything else (store down) → 500, logged here
//
// MIDDLEWARE PATTERN IN GO:
// A middleware takes an http.Handler and returns a new http.Handler that
// wraps it. Chi applies them in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireSession(authn Authenticator, cookies *CookieManager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := authn.Authenticate(r.Context(), cookies.Token(r))
			if err != nil {
				rejectSession(w, r, cookies, logger, err)
				return
			}

			ctx := WithSession(r.Context(), session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func rejectSession(w http.ResponseWriter, r *http.Request, cookies *CookieManager, logger *slog.Logger, err error) {
	if !errors.Is(err, apperror.ErrUnauthorized) {
		logger.Error("session lookup failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Server error")
		return
	}

	if errors.Is(err, apperror.ErrInvalidSession) || errors.Is(err, apperror.ErrSessionExpired) {
		cookies.Clear(w)
	}

	message := "Not authenticated"
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	writeJSONError(w, http.StatusUnauthorized, "unauthorized", message)
}

// writeJSONError writes the same {error, message} body the handlers use.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *model.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext retrieves the session stored by RequireSession.
//
// Returns (nil, false) if the request did not pass through RequireSession.
//
// Usage in handlers:
//
//	session, ok := auth.SessionFromContext(r.Context())
//	if !ok {
//	    // route is missing the middleware
//	}
func SessionFromContext(ctx context.Context) (*model.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*model.Session)
	return s, ok && s != nil
}
