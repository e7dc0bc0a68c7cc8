package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/farhan/ranklab/internal/apperror"
	"github.com/farhan/ranklab/internal/model"
	"github.com/farhan/ranklab/internal/service"
	"github.com/farhan/ranklab/internal/sharecode"
)

// TokenSource supplies the current bearer token, or "" when no principal
// is signed in.
type TokenSource func() string

// Client speaks to the list API over HTTP. A zero token from the source
// short-circuits authenticated calls with ErrNotAuthenticated before any
// round trip.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenSource
}

func NewClient(baseURL string, token TokenSource) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		token:   token,
	}
}

// FetchAll returns every non-deleted list owned by the current principal.
func (c *Client) FetchAll(ctx context.Context) ([]model.List, error) {
	req, err := c.authedRequest(ctx, http.MethodGet, "/api/lists", nil)
	if err != nil {
		return nil, err
	}

	var lists []model.List
	if err := c.do(req, http.StatusOK, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// Create uploads a full list definition and returns the server-assigned
// record, including its identifier and timestamps.
func (c *Client) Create(ctx context.Context, list model.List) (*model.List, error) {
	req, err := c.authedRequest(ctx, http.MethodPost, "/api/lists", draftFrom(list))
	if err != nil {
		return nil, err
	}

	var created model.List
	if err := c.do(req, http.StatusCreated, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update submits a partial update. ErrNotFound means the server has no
// matching record; callers fall back to local-only state rather than fail.
func (c *Client) Update(ctx context.Context, id string, patch service.ListPatch) (*model.List, error) {
	req, err := c.authedRequest(ctx, http.MethodPut, "/api/lists/"+id, patch)
	if err != nil {
		return nil, err
	}

	var updated model.List
	if err := c.do(req, http.StatusOK, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Remove soft-deletes a list server-side. A list the server no longer has
// counts as success: the cache is already correct.
func (c *Client) Remove(ctx context.Context, id string) error {
	req, err := c.authedRequest(ctx, http.MethodDelete, "/api/lists/"+id, nil)
	if err != nil {
		return err
	}

	err = c.do(req, http.StatusOK, nil)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// FetchByShareCode resolves a published list anonymously. Malformed codes
// fail fast without a round trip.
func (c *Client) FetchByShareCode(ctx context.Context, code string) (*model.List, error) {
	if !sharecode.Valid(code) {
		return nil, apperror.ValidationFailed("code", "share codes are 6 alphanumeric characters")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/lists/share/"+code, nil)
	if err != nil {
		return nil, err
	}

	var list model.List
	if err := c.do(req, http.StatusOK, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) authedRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	token := c.token()
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do executes the request and decodes a wantStatus response into out.
// Transport failures are returned as-is so callers can treat the outcome
// as unknown rather than as an empty server.
func (c *Client) do(req *http.Request, wantStatus int, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case wantStatus:
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	case http.StatusUnauthorized:
		return ErrNotAuthenticated
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
}

// draftFrom converts a cached list into the wire shape the create endpoint
// accepts. Rank stays implicit in array position.
func draftFrom(list model.List) service.ListInput {
	items := make([]service.ItemInput, 0, len(list.Items))
	for _, it := range list.Items {
		items = append(items, service.ItemInput{
			ExternalID: it.ExternalID,
			Source:     it.Source,
			Name:       it.Name,
			ImageURL:   it.ImageURL,
			Year:       it.Year,
			Subtitle:   it.Subtitle,
			Metadata:   it.Metadata,
			Rating:     it.Rating,
			Comment:    it.Comment,
		})
	}
	return service.ListInput{
		Category:    list.Category,
		Title:       list.Title,
		Description: list.Description,
		Theme:       list.Theme,
		AccentColor: list.AccentColor,
		Year:        list.Year,
		Items:       items,
	}
}
