// Package catalog defines the interfaces the rest of the application uses
// to talk to external media catalogs and suggestion providers. Concrete
// network clients are wired in at startup; everything else depends only on
// these types.
package catalog

import "context"

// Item is a normalized catalog entry, independent of which provider it
// came from.
type Item struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	ImageURL string         `json:"imageUrl,omitempty"`
	Year     *int           `json:"year,omitempty"`
	Subtitle string         `json:"subtitle,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DiscoverOptions narrows a Discover call.
type DiscoverOptions struct {
	Query string
	Limit int
}

// Provider looks up catalog entries for a media category.
type Provider interface {
	Discover(ctx context.Context, category string, opts DiscoverOptions) ([]Item, error)
	GetByID(ctx context.Context, id, category string) (*Item, error)
}

// Suggester produces items related to an existing ranking. Implementations
// are typically backed by a paid upstream, so callers are expected to
// rate-limit access.
type Suggester interface {
	Suggest(ctx context.Context, category string, seeds []string, limit int) ([]Item, error)
}
