package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/reversecheats/internal/apperror"
	"github.com/sakif/reversecheats/internal/model"
	"github.com/sakif/reversecheats/internal/repository"
)

var _ repository.SessionRepository = (*DB)(nil)

func (db *DB) CreateSession(ctx context.Context, s *model.Session) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sessions (sid, user_id, created_at, expires_at)
		 VALUES (?, ?, ?, ?)`,
		s.Token, s.UserID, s.CreatedAt, s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating session for user %d: %w", s.UserID, err)
	}
	return nil
}

// GetSession joins the owning user so one round trip resolves the identity.
// Unknown tokens return apperror.ErrNotFound.
func (db *DB) GetSession(ctx context.Context, token string) (*model.Session, error) {
	var (
		s    model.Session
		name sql.NullString
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT s.sid, s.user_id, s.created_at, s.expires_at, u.id, u.email, u.account_name
		 FROM sessions s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.sid = ?`,
		token,
	).Scan(&s.Token, &s.UserID, &s.CreatedAt, &s.ExpiresAt, &s.User.ID, &s.User.Email, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("Session")
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting session: %w", err)
	}
	s.User.AccountName = stringPtr(name)
	return &s, nil
}

// DeleteSession is idempotent: deleting an unknown token is not an error.
func (db *DB) DeleteSession(ctx context.Context, token string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE sid = ?`, token); err != nil {
		return fmt.Errorf("sqlite: deleting session: %w", err)
	}
	return nil
}

func (db *DB) CountOtherSessions(ctx context.Context, userID int64, exceptToken string, nowMs int64) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions
		 WHERE user_id = ? AND sid != ? AND expires_at > ?`,
		userID, exceptToken, nowMs,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting sessions for user %d: %w", userID, err)
	}
	return n, nil
}
