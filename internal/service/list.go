// Package service contains the business logic layer: validation, ownership
// enforcement, and the publish flow. Services receive repository interfaces
// (not concrete stores) and return domain errors from internal/apperror;
// handlers translate those to HTTP statuses.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/farhan/ranklab/internal/apperror"
	"github.com/farhan/ranklab/internal/model"
	"github.com/farhan/ranklab/internal/repository"
	"github.com/farhan/ranklab/internal/sharecode"
)

const (
	MaxTitleLength       = 120
	MaxDescriptionLength = 2000
	MaxCommentLength     = 1000
	MaxItemsPerList      = 250

	DefaultTheme       = "classic"
	DefaultAccentColor = "#e50914"

	// shareCodeAttempts bounds retries when a generated code collides.
	shareCodeAttempts = 5
)

// ListInput carries a full list definition for create calls.
type ListInput struct {
	Category    model.Category `json:"category"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Theme       string         `json:"theme"`
	AccentColor string         `json:"accentColor"`
	Year        *int           `json:"year"`
	Items       []ItemInput    `json:"items"`
}

// ListPatch carries the updatable fields for update calls. Nil fields are
// left unchanged; Items, when present, replaces the whole item array.
type ListPatch struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	Theme       *string      `json:"theme"`
	AccentColor *string      `json:"accentColor"`
	IsPublic    *bool        `json:"isPublic"`
	Items       *[]ItemInput `json:"items"`
}

// ItemInput is one entry of a submitted item array. Rank is implicit in
// array position.
type ItemInput struct {
	ID         string         `json:"id"`
	ExternalID string         `json:"externalId"`
	Source     string         `json:"source"`
	Name       string         `json:"name"`
	ImageURL   *string        `json:"imageUrl"`
	Year       *int           `json:"year"`
	Subtitle   *string        `json:"subtitle"`
	Metadata   map[string]any `json:"metadata"`
	Rating     *int           `json:"rating"`
	Comment    *string        `json:"comment"`
}

// nowFunc is swapped in tests to pin publish timestamps.
var nowFunc = time.Now

// ListService handles business logic for ranked lists.
type ListService struct {
	repo   repository.ListRepository
	logger *slog.Logger
}

func NewListService(repo repository.ListRepository, logger *slog.Logger) *ListService {
	return &ListService{repo: repo, logger: logger}
}

// Create validates and persists a full list definition for userID.
func (s *ListService) Create(ctx context.Context, userID string, input ListInput) (*model.List, error) {
	if userID == "" {
		return nil, apperror.Unauthenticated("sign in to create lists")
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "list title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("list title must be %d characters or less", MaxTitleLength))
	}
	if !input.Category.Valid() {
		return nil, apperror.ValidationFailed("category",
			fmt.Sprintf("unknown category %q", input.Category))
	}
	if len(input.Description) > MaxDescriptionLength {
		return nil, apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}

	theme := input.Theme
	if theme == "" {
		theme = DefaultTheme
	}
	color := input.AccentColor
	if color == "" {
		color = DefaultAccentColor
	}
	if err := validateHexColor(color); err != nil {
		return nil, err
	}

	items, err := buildItems(input.Items)
	if err != nil {
		return nil, err
	}

	list := &model.List{
		UserID:      &userID,
		Category:    input.Category,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Theme:       theme,
		AccentColor: color,
		Year:        input.Year,
		Items:       items,
	}

	if err := s.repo.Create(ctx, list); err != nil {
		s.logger.Error("failed to create list",
			slog.String("user", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating list: %w", err)
	}

	s.logger.Info("list created",
		slog.String("id", list.ID),
		slog.String("user", userID),
		slog.Int("items", len(list.Items)),
	)
	return list, nil
}

// GetForUser returns every non-deleted list owned by userID.
func (s *ListService) GetForUser(ctx context.Context, userID string) ([]model.List, error) {
	if userID == "" {
		return nil, apperror.Unauthenticated("sign in to fetch lists")
	}

	lists, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list lists", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing lists: %w", err)
	}
	if lists == nil {
		lists = []model.List{}
	}
	return lists, nil
}

// Get returns one list owned by userID, items included. Lists owned by
// someone else report not-found, same as missing ones.
func (s *ListService) Get(ctx context.Context, userID, listID string) (*model.List, error) {
	if userID == "" {
		return nil, apperror.Unauthenticated("sign in to fetch lists")
	}
	return s.ownedList(ctx, userID, listID)
}

// Update applies a partial update to a list owned by userID. Non-owners get
// the same not-found as a missing list — ownership is never leaked. A first
// transition to public sets PublishedAt once and issues a share code.
func (s *ListService) Update(ctx context.Context, userID, listID string, patch ListPatch) (*model.List, error) {
	if userID == "" {
		return nil, apperror.Unauthenticated("sign in to update lists")
	}

	list, err := s.ownedList(ctx, userID, listID)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, apperror.ValidationFailed("title", "list title is required")
		}
		if len(title) > MaxTitleLength {
			return nil, apperror.ValidationFailed("title",
				fmt.Sprintf("list title must be %d characters or less", MaxTitleLength))
		}
		list.Title = title
	}
	if patch.Description != nil {
		if len(*patch.Description) > MaxDescriptionLength {
			return nil, apperror.ValidationFailed("description",
				fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
		}
		list.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Theme != nil && *patch.Theme != "" {
		list.Theme = *patch.Theme
	}
	if patch.AccentColor != nil {
		if err := validateHexColor(*patch.AccentColor); err != nil {
			return nil, err
		}
		list.AccentColor = *patch.AccentColor
	}

	// Validate the replacement items before any write; a bad item must not
	// leave the metadata update behind.
	var items []model.ListItem
	if patch.Items != nil {
		items, err = buildItems(*patch.Items)
		if err != nil {
			return nil, err
		}
	}

	if patch.IsPublic != nil && *patch.IsPublic != list.IsPublic {
		if *patch.IsPublic {
			if err := s.publish(ctx, list); err != nil {
				return nil, err
			}
		} else {
			// Unpublishing hides the list but keeps its code; republishing
			// restores the same share URL.
			list.IsPublic = false
		}
	}

	if err := s.repo.Update(ctx, list); err != nil {
		if !apperror.IsNotFound(err) {
			s.logger.Error("failed to update list",
				slog.String("id", listID),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	if patch.Items != nil {
		if err := s.repo.ReplaceItems(ctx, listID, items); err != nil {
			return nil, fmt.Errorf("replacing items: %w", err)
		}
		// Re-read so the response carries store-assigned IDs and ranks.
		return s.repo.GetByID(ctx, listID)
	}

	s.logger.Info("list updated", slog.String("id", list.ID))
	return list, nil
}

// Delete soft-deletes a list owned by userID. An absent list — or one the
// caller does not own — deletes nothing and reports success: the caller's
// cache is already correct either way.
func (s *ListService) Delete(ctx context.Context, userID, listID string) error {
	if userID == "" {
		return apperror.Unauthenticated("sign in to delete lists")
	}

	list, err := s.repo.GetByID(ctx, listID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("deleting list: %w", err)
	}
	if list.Owner() != userID {
		return nil
	}

	if err := s.repo.SoftDelete(ctx, listID); err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("deleting list: %w", err)
	}

	s.logger.Info("list deleted", slog.String("id", listID))
	return nil
}

// publish flips the list public, setting PublishedAt exactly once and
// issuing a share code on first publish.
func (s *ListService) publish(ctx context.Context, list *model.List) error {
	list.IsPublic = true

	if list.PublishedAt == nil {
		now := nowFunc()
		list.PublishedAt = &now
	}

	if list.ShareCode != nil {
		return nil
	}

	for attempt := 0; attempt < shareCodeAttempts; attempt++ {
		code, err := sharecode.Generate()
		if err != nil {
			return fmt.Errorf("generating share code: %w", err)
		}
		taken, err := s.repo.ShareCodeExists(ctx, code)
		if err != nil {
			return fmt.Errorf("checking share code: %w", err)
		}
		if !taken {
			list.ShareCode = &code
			return nil
		}
	}
	return fmt.Errorf("generating share code: %d collisions in a row", shareCodeAttempts)
}

// ownedList fetches a list and verifies ownership, reporting not-found for
// both missing lists and lists owned by someone else.
func (s *ListService) ownedList(ctx context.Context, userID, listID string) (*model.List, error) {
	list, err := s.repo.GetByID(ctx, listID)
	if err != nil {
		return nil, err
	}
	if list.Owner() != userID {
		return nil, apperror.NotFound("list", listID)
	}
	return list, nil
}

// buildItems validates an input array and converts it to model items. Rank
// is left to the repository, which derives it from position.
func buildItems(inputs []ItemInput) ([]model.ListItem, error) {
	if len(inputs) > MaxItemsPerList {
		return nil, apperror.ValidationFailed("items",
			fmt.Sprintf("a list holds at most %d items", MaxItemsPerList))
	}

	items := make([]model.ListItem, 0, len(inputs))
	for i, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, apperror.ValidationFailed("items",
				fmt.Sprintf("item %d has no name", i+1))
		}
		if in.ExternalID == "" {
			return nil, apperror.ValidationFailed("items",
				fmt.Sprintf("item %d has no catalog id", i+1))
		}
		if in.Rating != nil && (*in.Rating < model.MinRating || *in.Rating > model.MaxRating) {
			return nil, apperror.ValidationFailed("items",
				fmt.Sprintf("item %d rating must be between %d and %d",
					i+1, model.MinRating, model.MaxRating))
		}
		if in.Comment != nil && len(*in.Comment) > MaxCommentLength {
			return nil, apperror.ValidationFailed("items",
				fmt.Sprintf("item %d comment must be %d characters or less", i+1, MaxCommentLength))
		}

		items = append(items, model.ListItem{
			ID:         in.ID,
			ExternalID: in.ExternalID,
			Source:     in.Source,
			Name:       name,
			ImageURL:   in.ImageURL,
			Year:       in.Year,
			Subtitle:   in.Subtitle,
			Metadata:   in.Metadata,
			Rating:     in.Rating,
			Comment:    in.Comment,
		})
	}
	return items, nil
}

// validateHexColor accepts #RGB and #RRGGBB.
func validateHexColor(color string) error {
	valid := (len(color) == 4 || len(color) == 7) && color[0] == '#'
	if valid {
		for i := 1; i < len(color); i++ {
			c := color[i]
			switch {
			case c >= '0' && c <= '9':
			case c >= 'a' && c <= 'f':
			case c >= 'A' && c <= 'F':
			default:
				valid = false
			}
		}
	}
	if !valid {
		return apperror.ValidationFailed("accentColor",
			"accent color must be a hex color like #e50914")
	}
	return nil
}
