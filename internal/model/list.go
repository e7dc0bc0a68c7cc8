// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — plain values with JSON and
// db tags rather than classes; Go favours composition over inheritance.
package model

import "time"

// Category identifies which content catalog a list ranks items from.
type Category string

const (
	CategoryMovie   Category = "movie"
	CategoryTV      Category = "tv"
	CategoryBook    Category = "book"
	CategoryPodcast Category = "podcast"
	CategoryMusic   Category = "music"
	CategoryGame    Category = "game"
)

// Categories is the fixed set of valid list categories.
var Categories = []Category{
	CategoryMovie, CategoryTV, CategoryBook,
	CategoryPodcast, CategoryMusic, CategoryGame,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// List is a ranked collection of items owned by at most one user.
//
// UserID is a pointer because anonymous lists (created locally before
// sign-in) have no owner. ShareCode is set only once the list has been
// published; it stays unique across all non-deleted lists. DeletedAt
// implements soft deletion — a set timestamp excludes the row from every
// subsequent read, the row itself is never removed.
type List struct {
	ID          string     `json:"id"          db:"id"`
	UserID      *string    `json:"userId"      db:"user_id"`
	Category    Category   `json:"category"    db:"category"`
	Title       string     `json:"title"       db:"title"`
	Description string     `json:"description" db:"description"`
	Theme       string     `json:"theme"       db:"theme"`
	AccentColor string     `json:"accentColor" db:"accent_color"` // hex, e.g. "#e50914"
	Year        *int       `json:"year"        db:"year"`
	ShareCode   *string    `json:"shareCode"   db:"share_code"`
	IsPublic    bool       `json:"isPublic"    db:"is_public"`
	PublishedAt *time.Time `json:"publishedAt" db:"published_at"` // set at most once, on first publish
	CreatedAt   time.Time  `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt"   db:"updated_at"`
	DeletedAt   *time.Time `json:"-"           db:"deleted_at"`

	// Items are the ranked entries, ordered by Rank ascending when loaded.
	Items []ListItem `json:"items,omitempty"`
}

// Owner returns the owning user ID, or "" for anonymous lists.
func (l *List) Owner() string {
	if l.UserID == nil {
		return ""
	}
	return *l.UserID
}
