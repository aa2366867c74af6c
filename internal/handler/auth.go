package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/reversecheats/internal/apperror"
	"github.com/sakif/reversecheats/internal/auth"
	"github.com/sakif/reversecheats/internal/model"
	"github.com/sakif/reversecheats/internal/service"
)

// Accounts is the slice of service.AuthService the handlers use.
type Accounts interface {
	Signup(ctx context.Context, in service.Credentials) (*model.User, error)
	Login(ctx context.Context, in service.Credentials) (*service.LoginResult, error)
	Logout(ctx context.Context, token string) error
	IsFirstLogin(ctx context.Context, session *model.Session) (bool, error)
	UpdateAccountName(ctx context.Context, userID int64, raw string) (string, error)
}

// AuthHandler serves signup, login, logout, the "who am I" endpoint and the
// account name update.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSignup            → create an account (no session)
//   - HandleLogin             → check credentials, open a session, set the sid cookie
//   - HandleLogout            → drop the session and the cookie
//   - HandleMe                → current identity + first-login hint
//   - HandleUpdateAccountName → set the display name
type AuthHandler struct {
	accounts Accounts
	cookies  *auth.CookieManager
	logger   *slog.Logger
}

func NewAuthHandler(accounts Accounts, cookies *auth.CookieManager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, cookies: cookies, logger: logger}
}

type loginResponse struct {
	OK   bool           `json:"ok"`
	User model.Identity `json:"user"`
}

type meResponse struct {
	User         model.Identity `json:"user"`
	IsFirstLogin bool           `json:"isFirstLogin"`
}

type accountNameResponse struct {
	OK          bool   `json:"ok"`
	AccountName string `json:"account_name"`
}

// HandleSignup creates an account.
//
// HTTP: POST /api/signup  {email, password} → 201 {ok:true}
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.accounts.Signup(r.Context(), service.Credentials{Email: req.Email, Password: req.Password}); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, okResponse{OK: true})
}

// HandleLogin opens a session and hands its token to the browser as the
// HttpOnly sid cookie. The token never appears in the body.
//
// HTTP: POST /api/login  {email, password} → 200 {ok:true, user}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.accounts.Login(r.Context(), service.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.cookies.Set(w, res.Session.Token)
	writeJSON(w, http.StatusOK, loginResponse{OK: true, User: res.User.Identity()})
}

// HandleLogout always succeeds from the client's point of view: the cookie
// is cleared even if deleting the session row failed.
//
// HTTP: POST /api/logout → 200 {ok:true}
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Logout(r.Context(), h.cookies.Token(r)); err != nil {
		h.logger.Error("logout: deleting session failed", slog.String("error", err.Error()))
	}

	h.cookies.Clear(w)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// HandleMe returns the identity attached by auth.RequireSession.
//
// HTTP: GET /api/me → 200 {user, isFirstLogin}
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, apperror.Unauthenticated())
		return
	}

	isFirst, err := h.accounts.IsFirstLogin(r.Context(), session)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{User: session.User, IsFirstLogin: isFirst})
}

// HandleUpdateAccountName sets the display name.
//
// HTTP: PUT /api/account-name  {account_name} → 200 {ok:true, account_name}
func (h *AuthHandler) HandleUpdateAccountName(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, apperror.Unauthenticated())
		return
	}

	var req accountNameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	name, err := h.accounts.UpdateAccountName(r.Context(), session.UserID, req.AccountName)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, accountNameResponse{OK: true, AccountName: name})
}
