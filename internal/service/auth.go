// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes to the database
//
// Services take repository interfaces, not *sqlite.DB, so tests can pass
// in-memory fakes and the handlers never see SQL. Services know nothing
// about HTTP: they return apperror values and the handler picks the status.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/reversecheats/internal/apperror"
	"github.com/sakif/reversecheats/internal/auth"
	"github.com/sakif/reversecheats/internal/idgen"
	"github.com/sakif/reversecheats/internal/model"
	"github.com/sakif/reversecheats/internal/repository"
)

// Credentials is the signup/login payload.
type Credentials struct {
	Email    string
	Password string
}

// LoginResult bundles the user and the new session so the handler can set
// the cookie and respond in one step.
type LoginResult struct {
	User    *model.User
	Session *model.Session
}

// AuthService owns accounts and sessions.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository     → account rows
//   - sessions   repository.SessionRepository  → session rows
//   - passwords  *auth.PasswordService         → bcrypt hashing
//   - ttl        time.Duration                 → session lifetime
type AuthService struct {
	users     repository.UserRepository
	sessions  repository.SessionRepository
	passwords *auth.PasswordService
	ttl       time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

var _ auth.Authenticator = (*AuthService)(nil)

// AuthOption configures an AuthService.
type AuthOption func(*AuthService)

// WithClock overrides time.Now, for expiry tests.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	passwords *auth.PasswordService,
	ttl time.Duration,
	logger *slog.Logger,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		users:     users,
		sessions:  sessions,
		passwords: passwords,
		ttl:       ttl,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup validates the credentials and creates the account. It does not
// log the user in.
func (s *AuthService) Signup(ctx context.Context, in Credentials) (*model.User, error) {
	if in.Email == "" || in.Password == "" {
		return nil, apperror.ValidationFailed("email", "Email and password are required")
	}

	email := normalizeEmail(in.Email)
	if !validEmail(email) {
		return nil, apperror.ValidationFailed("email", "Invalid email format")
	}
	if !validPasswordLength(in.Password) {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("Password must be between %d and %d characters", MinPasswordLength, MaxPasswordLength))
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UnixMilli(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user signed up", slog.Int64("userID", user.ID))
	return user, nil
}

// Login checks the credentials and opens a new session.
//
// Unknown email and wrong password both return apperror.InvalidCredentials,
// and both cost one bcrypt comparison, so neither the body nor the timing
// tells a caller which emails are registered.
func (s *AuthService) Login(ctx context.Context, in Credentials) (*LoginResult, error) {
	if in.Email == "" || in.Password == "" {
		return nil, apperror.ValidationFailed("email", "Email and password are required")
	}
	email := normalizeEmail(in.Email)
	if !validEmail(email) {
		return nil, apperror.ValidationFailed("email", "Invalid email format")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		s.passwords.VerifyDummy(in.Password)
		return nil, apperror.InvalidCredentials()
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: verifying password for user %d: %w", user.ID, err)
	}

	token, err := idgen.SessionToken()
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}
	session := model.NewSession(token, user.ID, s.now(), s.ttl)
	session.User = user.Identity()
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("service/auth: creating session: %w", err)
	}

	s.logger.Info("user logged in", slog.Int64("userID", user.ID))
	return &LoginResult{User: user, Session: session}, nil
}

// Logout deletes the session. An empty or unknown token is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("service/auth: logging out: %w", err)
	}
	return nil
}

// Authenticate resolves a session token.
//
//   - ""                  → apperror.ErrUnauthenticated
//   - unknown token       → apperror.ErrInvalidSession
//   - expires_at <= now   → row deleted, apperror.ErrSessionExpired
//
// Expired rows are only ever removed here, on first sight; there is no
// background sweep.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, apperror.Unauthenticated()
	}

	session, err := s.sessions.GetSession(ctx, token)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.InvalidSession()
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: resolving session: %w", err)
	}

	if session.Expired(s.now()) {
		if err := s.sessions.DeleteSession(ctx, token); err != nil {
			s.logger.Warn("failed to delete expired session",
				slog.Int64("userID", session.UserID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.SessionExpired()
	}

	return session, nil
}

// IsFirstLogin reports whether the user has no other live session besides
// the current one. The client uses it to prompt for an account name.
func (s *AuthService) IsFirstLogin(ctx context.Context, session *model.Session) (bool, error) {
	n, err := s.sessions.CountOtherSessions(ctx, session.UserID, session.Token, s.now().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("service/auth: counting sessions: %w", err)
	}
	return n == 0, nil
}

// UpdateAccountName validates and stores the user's display name and
// returns the stored value.
func (s *AuthService) UpdateAccountName(ctx context.Context, userID int64, raw string) (string, error) {
	if raw == "" {
		return "", apperror.ValidationFailed("account_name", "account_name is required")
	}
	name := sanitize(raw, MaxAccountNameLength)
	if name == "" {
		return "", apperror.ValidationFailed("account_name", "account_name cannot be empty")
	}
	if accountNameForbidden.MatchString(name) {
		return "", apperror.ValidationFailed("account_name", "account_name contains invalid characters")
	}

	if err := s.users.UpdateAccountName(ctx, userID, name); err != nil {
		return "", fmt.Errorf("service/auth: updating account name: %w", err)
	}

	// Answer with what the store now holds, not with what we sent it.
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("service/auth: re-reading user %d: %w", userID, err)
	}
	if user.AccountName == nil {
		return "", fmt.Errorf("service/auth: account name for user %d was not stored", userID)
	}

	s.logger.Info("account name updated", slog.Int64("userID", userID))
	return *user.AccountName, nil
}
