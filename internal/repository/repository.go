// Package repository defines the data-access interfaces the service layer
// depends on. Concrete implementations live in subpackages (sqlite).
package repository

import (
	"context"

	"github.com/farhan/ranklab/internal/model"
)

// ListRepository persists ranked lists and their items.
//
// Every read excludes soft-deleted lists. Implementations assign IDs and
// timestamps on create, and derive item ranks from array position (1-indexed)
// whenever the item set is written.
type ListRepository interface {
	// Create inserts a list and its items. The list's ID, timestamps and
	// item ranks are assigned in place.
	Create(ctx context.Context, list *model.List) error

	// GetByID returns the list with its items ordered by rank ascending.
	GetByID(ctx context.Context, id string) (*model.List, error)

	// GetByUser returns every non-deleted list owned by userID, items
	// included, most recently updated first.
	GetByUser(ctx context.Context, userID string) ([]model.List, error)

	// Update writes the list's metadata fields (title, description, theme,
	// accent color, year, share code, visibility, publish timestamp).
	Update(ctx context.Context, list *model.List) error

	// ReplaceItems deletes and re-inserts the list's item set in one
	// transaction. Ranks are derived from position, so the stored ranks are
	// exactly 1..N regardless of the input's prior rank values.
	ReplaceItems(ctx context.Context, listID string, items []model.ListItem) error

	// SoftDelete marks the list deleted. Deleting an already-deleted or
	// unknown list returns apperror.ErrNotFound.
	SoftDelete(ctx context.Context, id string) error

	// GetByShareCode returns the single list where the share code matches,
	// the list is public, and it is not deleted, items ordered by rank.
	GetByShareCode(ctx context.Context, code string) (*model.List, error)

	// ShareCodeExists reports whether any non-deleted list carries the code,
	// public or not. Used for collision checks when issuing codes.
	ShareCodeExists(ctx context.Context, code string) (bool, error)
}
