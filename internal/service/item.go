package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/reversecheats/internal/apperror"
	"github.com/sakif/reversecheats/internal/model"
	"github.com/sakif/reversecheats/internal/repository"
)

// ItemInput is the create/update payload. Category and Tags are optional.
type ItemInput struct {
	Title    string
	Category string
	Tags     []string
	Content  string
}

// ItemService handles business logic for cheat items.
//
// Every method takes the owner's user id and passes it down to the
// repository, which filters on it. Items owned by someone else are
// reported as not found, never as forbidden.
type ItemService struct {
	repo   repository.ItemRepository
	logger *slog.Logger
}

func NewItemService(repo repository.ItemRepository, logger *slog.Logger) *ItemService {
	return &ItemService{repo: repo, logger: logger}
}

func (s *ItemService) List(ctx context.Context, userID int64) ([]model.CheatItem, error) {
	items, err := s.repo.ListItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

func (s *ItemService) Get(ctx context.Context, userID int64, rawID string) (*model.CheatItem, error) {
	id, ok := cleanItemID(rawID)
	if !ok {
		return nil, invalidItemID()
	}

	item, err := s.repo.GetItem(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// Create validates the input and stores a new item. The repository assigns
// the id and the timestamps.
func (s *ItemService) Create(ctx context.Context, userID int64, in ItemInput) (*model.CheatItem, error) {
	item, err := buildItem(in)
	if err != nil {
		return nil, err
	}
	item.UserID = userID

	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	s.logger.Info("item created",
		slog.String("id", item.ID),
		slog.Int64("userID", userID),
	)
	return item, nil
}

// Update replaces the editable fields of an item. The returned item has no
// CreatedAt: only UpdatedAt changes and created_at is not re-read.
func (s *ItemService) Update(ctx context.Context, userID int64, rawID string, in ItemInput) (*model.CheatItem, error) {
	id, ok := cleanItemID(rawID)
	if !ok {
		return nil, invalidItemID()
	}

	item, err := buildItem(in)
	if err != nil {
		return nil, err
	}
	item.ID = id
	item.UserID = userID

	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}

	s.logger.Info("item updated",
		slog.String("id", id),
		slog.Int64("userID", userID),
	)
	return item, nil
}

func (s *ItemService) Delete(ctx context.Context, userID int64, rawID string) error {
	id, ok := cleanItemID(rawID)
	if !ok {
		return invalidItemID()
	}

	if err := s.repo.DeleteItem(ctx, userID, id); err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}

	s.logger.Info("item deleted",
		slog.String("id", id),
		slog.Int64("userID", userID),
	)
	return nil
}

// buildItem applies the shared create/update rules: title and content are
// required and must survive trimming, category falls back to
// model.DefaultCategory, tags are cleaned by sanitizeTags.
func buildItem(in ItemInput) (*model.CheatItem, error) {
	if in.Title == "" || in.Content == "" {
		return nil, apperror.ValidationFailed("title", "title and content are required")
	}

	title := sanitize(in.Title, MaxTitleLength)
	content := sanitize(in.Content, MaxContentLength)
	if title == "" || content == "" {
		return nil, apperror.ValidationFailed("title", "title and content cannot be empty")
	}

	category := sanitize(in.Category, MaxCategoryLength)
	if category == "" {
		category = model.DefaultCategory
	}

	return &model.CheatItem{
		Title:    title,
		Category: category,
		Tags:     sanitizeTags(in.Tags),
		Content:  content,
	}, nil
}

func invalidItemID() *apperror.AppError {
	return apperror.ValidationFailed("id", "Invalid item ID")
}
