package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/farhan/ranklab/internal/apperror"
	"github.com/farhan/ranklab/internal/model"
	"github.com/farhan/ranklab/internal/repository"
)

// compile-time check that *DB implements repository.ListRepository
var _ repository.ListRepository = (*DB)(nil)

const listColumns = `id, user_id, category, title, description, theme, accent_color,
	year, share_code, is_public, published_at, created_at, updated_at`

// Create inserts a list and its items. IDs, timestamps and item ranks are
// assigned in place on the passed structs.
func (db *DB) Create(ctx context.Context, list *model.List) error {
	now := time.Now()
	list.ID = xid.New().String()
	list.CreatedAt = now
	list.UpdatedAt = now

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning create tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO lists (id, user_id, category, title, description, theme,
		   accent_color, year, share_code, is_public, published_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		list.ID,
		list.UserID,
		string(list.Category),
		list.Title,
		list.Description,
		list.Theme,
		list.AccentColor,
		list.Year,
		list.ShareCode,
		list.IsPublic,
		list.PublishedAt,
		list.CreatedAt,
		list.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting list: %w", err)
	}

	if err := insertItems(ctx, tx, list.ID, list.Items, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing create: %w", err)
	}
	return nil
}

// GetByID returns the list with its items ordered by rank ascending.
// Soft-deleted lists are reported as not found.
func (db *DB) GetByID(ctx context.Context, id string) (*model.List, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+listColumns+` FROM lists WHERE id = ? AND deleted_at IS NULL`, id)

	list, err := scanList(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("list", id)
		}
		return nil, fmt.Errorf("sqlite: getting list %s: %w", id, err)
	}

	if list.Items, err = db.loadItems(ctx, list.ID); err != nil {
		return nil, err
	}
	return list, nil
}

// GetByUser returns every non-deleted list owned by userID, newest update
// first, items included.
func (db *DB) GetByUser(ctx context.Context, userID string) ([]model.List, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+listColumns+` FROM lists
		 WHERE user_id = ? AND deleted_at IS NULL
		 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing lists for user %s: %w", userID, err)
	}
	defer rows.Close()

	var lists []model.List
	for rows.Next() {
		list, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning list row: %w", err)
		}
		lists = append(lists, *list)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating lists: %w", err)
	}

	for i := range lists {
		if lists[i].Items, err = db.loadItems(ctx, lists[i].ID); err != nil {
			return nil, err
		}
	}
	return lists, nil
}

// Update writes the list's metadata fields. Items are written separately via
// ReplaceItems.
func (db *DB) Update(ctx context.Context, list *model.List) error {
	list.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE lists
		 SET title = ?, description = ?, theme = ?, accent_color = ?, year = ?,
		     share_code = ?, is_public = ?, published_at = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		list.Title,
		list.Description,
		list.Theme,
		list.AccentColor,
		list.Year,
		list.ShareCode,
		list.IsPublic,
		list.PublishedAt,
		list.UpdatedAt,
		list.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating list %s: %w", list.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking update of list %s: %w", list.ID, err)
	}
	if affected == 0 {
		return apperror.NotFound("list", list.ID)
	}
	return nil
}

// ReplaceItems deletes and re-inserts the item set in one transaction. The
// stored ranks are exactly 1..N in array order regardless of the ranks the
// input carried.
func (db *DB) ReplaceItems(ctx context.Context, listID string, items []model.ListItem) error {
	var exists int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lists WHERE id = ? AND deleted_at IS NULL`, listID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("sqlite: checking list %s: %w", listID, err)
	}
	if exists == 0 {
		return apperror.NotFound("list", listID)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning item replace tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM list_items WHERE list_id = ?`, listID); err != nil {
		return fmt.Errorf("sqlite: clearing items of list %s: %w", listID, err)
	}

	now := time.Now()
	if err := insertItems(ctx, tx, listID, items, now); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE lists SET updated_at = ? WHERE id = ?`, now, listID); err != nil {
		return fmt.Errorf("sqlite: touching list %s: %w", listID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing item replace: %w", err)
	}
	return nil
}

// SoftDelete marks the list deleted. The row is never removed; subsequent
// reads exclude it.
func (db *DB) SoftDelete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE lists SET deleted_at = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		time.Now(), time.Now(), id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting list %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking delete of list %s: %w", id, err)
	}
	if affected == 0 {
		return apperror.NotFound("list", id)
	}
	return nil
}

// GetByShareCode returns the single public, non-deleted list carrying the
// code. Wrong codes and private lists are indistinguishable to the caller.
func (db *DB) GetByShareCode(ctx context.Context, code string) (*model.List, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+listColumns+` FROM lists
		 WHERE share_code = ? AND is_public = 1 AND deleted_at IS NULL`, code)

	list, err := scanList(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("list", code)
		}
		return nil, fmt.Errorf("sqlite: getting list by share code: %w", err)
	}

	if list.Items, err = db.loadItems(ctx, list.ID); err != nil {
		return nil, err
	}
	return list, nil
}

// ShareCodeExists reports whether any non-deleted list carries the code,
// regardless of visibility.
func (db *DB) ShareCodeExists(ctx context.Context, code string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lists WHERE share_code = ? AND deleted_at IS NULL`, code,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking share code: %w", err)
	}
	return count > 0, nil
}

// execer is the subset of sql.Tx and sql.DB used by insertItems.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertItems writes the item array with ranks derived from position
// (1-indexed). Items without an ID get a fresh one; items carried over from
// a previous version keep theirs.
func insertItems(ctx context.Context, ex execer, listID string, items []model.ListItem, now time.Time) error {
	for i := range items {
		item := &items[i]
		if item.ID == "" {
			item.ID = xid.New().String()
			item.CreatedAt = now
		}
		item.ListID = listID
		item.Rank = i + 1
		item.UpdatedAt = now

		metadata, err := marshalMetadata(item.Metadata)
		if err != nil {
			return fmt.Errorf("sqlite: encoding metadata of item %d: %w", i+1, err)
		}

		_, err = ex.ExecContext(ctx,
			`INSERT INTO list_items (id, list_id, external_id, source, rank, name,
			   image_url, year, subtitle, metadata, rating, comment, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID,
			item.ListID,
			item.ExternalID,
			item.Source,
			item.Rank,
			item.Name,
			item.ImageURL,
			item.Year,
			item.Subtitle,
			metadata,
			item.Rating,
			item.Comment,
			item.CreatedAt,
			item.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting item rank %d: %w", item.Rank, err)
		}
	}
	return nil
}

// loadItems returns a list's items ordered by rank ascending.
func (db *DB) loadItems(ctx context.Context, listID string) ([]model.ListItem, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, list_id, external_id, source, rank, name, image_url, year,
		   subtitle, metadata, rating, comment, created_at, updated_at
		 FROM list_items
		 WHERE list_id = ?
		 ORDER BY rank ASC`, listID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading items of list %s: %w", listID, err)
	}
	defer rows.Close()

	items := []model.ListItem{}
	for rows.Next() {
		var (
			item     model.ListItem
			metadata string
		)
		if err := rows.Scan(
			&item.ID, &item.ListID, &item.ExternalID, &item.Source, &item.Rank,
			&item.Name, &item.ImageURL, &item.Year, &item.Subtitle, &metadata,
			&item.Rating, &item.Comment, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning item row: %w", err)
		}
		if item.Metadata, err = unmarshalMetadata(metadata); err != nil {
			return nil, fmt.Errorf("sqlite: decoding metadata of item %s: %w", item.ID, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating items: %w", err)
	}
	return items, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanList(row rowScanner) (*model.List, error) {
	var (
		list     model.List
		category string
	)
	err := row.Scan(
		&list.ID,
		&list.UserID,
		&category,
		&list.Title,
		&list.Description,
		&list.Theme,
		&list.AccentColor,
		&list.Year,
		&list.ShareCode,
		&list.IsPublic,
		&list.PublishedAt,
		&list.CreatedAt,
		&list.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	list.Category = model.Category(category)
	return &list, nil
}

// marshalMetadata stores the opaque metadata document as JSON text.
func marshalMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalMetadata(s string) (map[string]any, error) {
	if s == "" || s == "{}" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}
