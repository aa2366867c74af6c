// Package repository declares the storage ports used by the services.
// internal/repository/sqlite is the production implementation.
package repository

import (
	"context"

	"github.com/sakif/reversecheats/internal/model"
)

type UserRepository interface {
	// CreateUser inserts the user and fills in its ID. A taken email
	// returns apperror.ErrDuplicateEmail.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	UpdateAccountName(ctx context.Context, userID int64, name string) error
}

type SessionRepository interface {
	CreateSession(ctx context.Context, session *model.Session) error
	// GetSession returns the session with its owner's identity, whether or
	// not it has expired. Expiry is the caller's decision.
	GetSession(ctx context.Context, token string) (*model.Session, error)
	DeleteSession(ctx context.Context, token string) error
	// CountOtherSessions counts the user's sessions that expire after nowMs,
	// excluding exceptToken.
	CountOtherSessions(ctx context.Context, userID int64, exceptToken string, nowMs int64) (int, error)
}

// ItemRepository methods are all scoped by owner: an item belonging to a
// different user behaves exactly like a missing one.
type ItemRepository interface {
	ListItems(ctx context.Context, userID int64) ([]model.CheatItem, error)
	GetItem(ctx context.Context, userID int64, id string) (*model.CheatItem, error)
	CreateItem(ctx context.Context, item *model.CheatItem) error
	UpdateItem(ctx context.Context, item *model.CheatItem) error
	DeleteItem(ctx context.Context, userID int64, id string) error
}
