package sqlite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/farhan/ranklab/internal/apperror"
	"github.com/farhan/ranklab/internal/model"
)

// newTestDB opens a fresh in-memory database with migrations applied.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := New(":memory:", "test", logger)
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func createTestList(t *testing.T, db *DB, userID string, items ...model.ListItem) *model.List {
	t.Helper()
	list := &model.List{
		UserID:      strPtr(userID),
		Category:    model.CategoryMovie,
		Title:       "Best Heist Movies",
		Description: "ranked",
		Theme:       "classic",
		AccentColor: "#e50914",
		Items:       items,
	}
	if err := db.Create(context.Background(), list); err != nil {
		t.Fatalf("failed to create test list: %v", err)
	}
	return list
}

func item(name, externalID string) model.ListItem {
	return model.ListItem{
		ExternalID: externalID,
		Source:     "tmdb",
		Name:       name,
	}
}

func TestCreate(t *testing.T) {
	db := newTestDB(t)

	list := createTestList(t, db, "user-1",
		item("Heat", "tmdb-949"),
		item("Rififi", "tmdb-1956"),
	)

	if list.ID == "" {
		t.Error("Create() did not set list.ID")
	}
	if list.CreatedAt.IsZero() || list.UpdatedAt.IsZero() {
		t.Error("Create() did not set timestamps")
	}
	if list.Items[0].Rank != 1 || list.Items[1].Rank != 2 {
		t.Errorf("Create() ranks = %d, %d; want 1, 2",
			list.Items[0].Rank, list.Items[1].Rank)
	}
}

func TestGetByID(t *testing.T) {
	db := newTestDB(t)
	original := createTestList(t, db, "user-1", item("Heat", "tmdb-949"))

	found, err := db.GetByID(context.Background(), original.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if found.Title != original.Title {
		t.Errorf("Title = %q, want %q", found.Title, original.Title)
	}
	if found.Owner() != "user-1" {
		t.Errorf("Owner() = %q, want %q", found.Owner(), "user-1")
	}
	if len(found.Items) != 1 || found.Items[0].Name != "Heat" {
		t.Errorf("Items = %v, want single item Heat", found.Items)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestGetByUser_ExcludesDeleted(t *testing.T) {
	db := newTestDB(t)
	kept := createTestList(t, db, "user-1")
	gone := createTestList(t, db, "user-1")
	createTestList(t, db, "user-2") // other owner

	if err := db.SoftDelete(context.Background(), gone.ID); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}

	lists, err := db.GetByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetByUser() error = %v", err)
	}
	if len(lists) != 1 {
		t.Fatalf("GetByUser() returned %d lists, want 1", len(lists))
	}
	if lists[0].ID != kept.ID {
		t.Errorf("GetByUser() returned %s, want %s", lists[0].ID, kept.ID)
	}
}

func TestReplaceItems_RanksAreContiguous(t *testing.T) {
	db := newTestDB(t)
	list := createTestList(t, db, "user-1", item("Heat", "tmdb-949"))

	// Input ranks are garbage on purpose; the store derives ranks from
	// array position.
	replacement := []model.ListItem{
		{ExternalID: "tmdb-1956", Source: "tmdb", Name: "Rififi", Rank: 99},
		{ExternalID: "tmdb-949", Source: "tmdb", Name: "Heat", Rank: 0},
		{ExternalID: "tmdb-240", Source: "tmdb", Name: "The Sting", Rank: -7},
	}
	if err := db.ReplaceItems(context.Background(), list.ID, replacement); err != nil {
		t.Fatalf("ReplaceItems() error = %v", err)
	}

	found, err := db.GetByID(context.Background(), list.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if len(found.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(found.Items))
	}
	for i, it := range found.Items {
		if it.Rank != i+1 {
			t.Errorf("item %d rank = %d, want %d", i, it.Rank, i+1)
		}
	}
	if found.Items[0].Name != "Rififi" {
		t.Errorf("rank 1 item = %q, want Rififi", found.Items[0].Name)
	}
}

func TestReplaceItems_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.ReplaceItems(context.Background(), "missing", nil)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("ReplaceItems() error = %v, want ErrNotFound", err)
	}
}

func TestSoftDelete(t *testing.T) {
	db := newTestDB(t)
	list := createTestList(t, db, "user-1")

	if err := db.SoftDelete(context.Background(), list.ID); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}

	// Deleted lists are invisible to reads.
	if _, err := db.GetByID(context.Background(), list.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}

	// Deleting again reports not found (the row is already excluded).
	if err := db.SoftDelete(context.Background(), list.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second SoftDelete() error = %v, want ErrNotFound", err)
	}
}

func TestGetByShareCode(t *testing.T) {
	db := newTestDB(t)
	list := createTestList(t, db, "user-1", item("Heat", "tmdb-949"))

	code := "Ab12Cd"
	list.ShareCode = &code
	list.IsPublic = true
	if err := db.Update(context.Background(), list); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	found, err := db.GetByShareCode(context.Background(), code)
	if err != nil {
		t.Fatalf("GetByShareCode() error = %v", err)
	}
	if found.ID != list.ID {
		t.Errorf("GetByShareCode() = %s, want %s", found.ID, list.ID)
	}
	if len(found.Items) != 1 {
		t.Errorf("items = %d, want 1", len(found.Items))
	}
}

func TestGetByShareCode_PrivateIsNotFound(t *testing.T) {
	db := newTestDB(t)
	list := createTestList(t, db, "user-1")

	// Code present but list not public: same not-found as a wrong code.
	code := "Ab12Cd"
	list.ShareCode = &code
	list.IsPublic = false
	if err := db.Update(context.Background(), list); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if _, err := db.GetByShareCode(context.Background(), code); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByShareCode() error = %v, want ErrNotFound", err)
	}
}

func TestItemMetadataRoundTrip(t *testing.T) {
	db := newTestDB(t)

	withMeta := item("Heat", "tmdb-949")
	withMeta.Metadata = map[string]any{"director": "Michael Mann", "runtime": float64(170)}
	withMeta.Rating = intPtr(5)
	withMeta.Comment = strPtr("the diner scene")

	list := createTestList(t, db, "user-1", withMeta)

	found, err := db.GetByID(context.Background(), list.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	got := found.Items[0]
	if got.Metadata["director"] != "Michael Mann" {
		t.Errorf("Metadata[director] = %v, want Michael Mann", got.Metadata["director"])
	}
	if got.Rating == nil || *got.Rating != 5 {
		t.Errorf("Rating = %v, want 5", got.Rating)
	}
	if got.Comment == nil || *got.Comment != "the diner scene" {
		t.Errorf("Comment = %v, want comment preserved", got.Comment)
	}
}
