package model

import "time"

// ListItem is one ranked entry within a List.
//
// Rank values within a list are always a permutation of 1..N — contiguous,
// no gaps, no duplicates. The repository derives ranks from array position
// on every item replace, so callers never manage rank values directly.
//
// ExternalID and Source identify the entry in its originating content
// catalog (e.g. a TMDB movie ID). Metadata holds whatever extra document the
// catalog returned; it is stored opaquely as JSON and never interpreted.
type ListItem struct {
	ID         string         `json:"id"         db:"id"`
	ListID     string         `json:"listId"     db:"list_id"`
	ExternalID string         `json:"externalId" db:"external_id"`
	Source     string         `json:"source"     db:"source"`
	Rank       int            `json:"rank"       db:"rank"`
	Name       string         `json:"name"       db:"name"`
	ImageURL   *string        `json:"imageUrl"   db:"image_url"`
	Year       *int           `json:"year"       db:"year"`
	Subtitle   *string        `json:"subtitle"   db:"subtitle"`
	Metadata   map[string]any `json:"metadata"   db:"metadata"`
	Rating     *int           `json:"rating"     db:"rating"` // 1–5 when set
	Comment    *string        `json:"comment"    db:"comment"`
	CreatedAt  time.Time      `json:"createdAt"  db:"created_at"`
	UpdatedAt  time.Time      `json:"updatedAt"  db:"updated_at"`
}

// MinRating and MaxRating bound the user rating scale.
const (
	MinRating = 1
	MaxRating = 5
)
