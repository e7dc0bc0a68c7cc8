package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/farhan/ranklab/internal/catalog"
	"github.com/farhan/ranklab/internal/repository/sqlite"
	"github.com/farhan/ranklab/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSuggester struct {
	gotCategory string
	gotSeeds    []string
	items       []catalog.Item
	err         error
}

func (f *fakeSuggester) Suggest(_ context.Context, category string, seeds []string, _ int) ([]catalog.Item, error) {
	f.gotCategory = category
	f.gotSeeds = seeds
	return f.items, f.err
}

func newSuggestHandler(t *testing.T, suggester catalog.Suggester) (*SuggestHandler, *ListHandler) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.New(":memory:", "test", logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	lists := service.NewListService(db, logger)
	return NewSuggestHandler(lists, suggester, logger), NewListHandler(lists, logger)
}

func TestHandleSuggest(t *testing.T) {
	fake := &fakeSuggester{items: []catalog.Item{{ID: "m9", Name: "Thief"}}}
	suggestHandler, listHandler := newSuggestHandler(t, fake)

	list := createList(t, listHandler, `{
		"category": "movie",
		"title": "Best Heist Films",
		"items": [{"externalId": "m1", "source": "tmdb", "name": "Heat"}]
	}`)

	req := authedRequest(http.MethodPost, "/api/lists/"+list.ID+"/suggestions", nil)
	req.SetPathValue("id", list.ID)
	rr := httptest.NewRecorder()
	suggestHandler.HandleSuggest(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body map[string][]catalog.Item
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, []catalog.Item{{ID: "m9", Name: "Thief"}}, body["suggestions"])
	assert.Equal(t, "movie", fake.gotCategory)
	assert.Equal(t, []string{"Heat"}, fake.gotSeeds)
}

func TestHandleSuggest_NotConfigured(t *testing.T) {
	suggestHandler, listHandler := newSuggestHandler(t, nil)
	list := createList(t, listHandler, `{"category":"movie","title":"A"}`)

	req := authedRequest(http.MethodPost, "/api/lists/"+list.ID+"/suggestions", nil)
	req.SetPathValue("id", list.ID)
	rr := httptest.NewRecorder()
	suggestHandler.HandleSuggest(rr, req)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
