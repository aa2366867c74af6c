package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sakif/reversecheats/internal/apperror"
	"github.com/sakif/reversecheats/internal/idgen"
	"github.com/sakif/reversecheats/internal/model"
	"github.com/sakif/reversecheats/internal/repository"
)

var _ repository.ItemRepository = (*DB)(nil)

// idAttempts bounds retries when a freshly generated item id collides with
// an existing primary key.
const idAttempts = 3

// ListItems returns the user's items, most recently updated first.
// Item timestamps share one fixed-width UTC layout, so ordering the TEXT
// column is chronological.
func (db *DB) ListItems(ctx context.Context, userID int64) ([]model.CheatItem, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, title, category, tags, content, created_at, updated_at
		 FROM cheat_items
		 WHERE user_id = ?
		 ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing items for user %d: %w", userID, err)
	}
	defer rows.Close()

	items := make([]model.CheatItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning item row: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating items: %w", err)
	}
	return items, nil
}

func (db *DB) GetItem(ctx context.Context, userID int64, id string) (*model.CheatItem, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, title, category, tags, content, created_at, updated_at
		 FROM cheat_items
		 WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("Item")
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting item %s: %w", id, err)
	}
	return item, nil
}

// CreateItem assigns item.ID and both timestamps, then inserts the row.
// CreatedAt and UpdatedAt are identical on creation.
func (db *DB) CreateItem(ctx context.Context, item *model.CheatItem) error {
	tags, err := encodeTags(item.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding tags: %w", err)
	}

	now := model.FormatTimestamp(db.now())
	item.CreatedAt = now
	item.UpdatedAt = now

	for attempt := 1; ; attempt++ {
		if item.ID, err = idgen.ItemID(); err != nil {
			return fmt.Errorf("sqlite: creating item: %w", err)
		}

		_, err = db.conn.ExecContext(ctx,
			`INSERT INTO cheat_items (id, user_id, title, category, tags, content, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, item.UserID, item.Title, item.Category, tags, item.Content, item.CreatedAt, item.UpdatedAt,
		)
		if err == nil {
			return nil
		}
		if !isPrimaryKeyViolation(err) || attempt == idAttempts {
			return fmt.Errorf("sqlite: creating item: %w", err)
		}
	}
}

// UpdateItem rewrites the editable fields of an item owned by item.UserID
// and stamps a new UpdatedAt. created_at is never touched. Zero matching
// rows (missing, or owned by someone else) is apperror.ErrNotFound.
func (db *DB) UpdateItem(ctx context.Context, item *model.CheatItem) error {
	tags, err := encodeTags(item.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding tags: %w", err)
	}

	item.UpdatedAt = model.FormatTimestamp(db.now())

	result, err := db.conn.ExecContext(ctx,
		`UPDATE cheat_items
		 SET title = ?, category = ?, tags = ?, content = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		item.Title, item.Category, tags, item.Content, item.UpdatedAt,
		item.ID, item.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating item %s: %w", item.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("Item")
	}
	return nil
}

func (db *DB) DeleteItem(ctx context.Context, userID int64, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM cheat_items WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting item %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("Item")
	}
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*model.CheatItem, error) {
	var (
		item model.CheatItem
		tags string
	)
	err := s.Scan(&item.ID, &item.UserID, &item.Title, &item.Category, &tags, &item.Content, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.Tags = decodeTags(tags)
	return &item, nil
}

// encodeTags stores tags as a JSON array. A nil slice is stored as "[]",
// never "null".
func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeTags is lenient: rows written by older clients may hold malformed
// or null tag text, which reads back as no tags.
func decodeTags(raw string) []string {
	tags := []string{}
	if raw == "" {
		return tags
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}
