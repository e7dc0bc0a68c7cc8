package syncer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/farhan/ranklab/internal/model"
)

// Cache is the client-resident list store. Mutations land here first,
// optimistically, and are pushed to the server afterwards. Every entry
// moves through StateLocalOnly -> StatePushing -> StateSynced; a failed
// push drops it back to StateLocalOnly for the next attempt.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]Entry)}
}

// Put stores a list created locally; it starts out StateLocalOnly.
func (c *Cache) Put(list model.List) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[list.ID] = Entry{List: list, State: StateLocalOnly}
}

func (c *Cache) Get(id string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	return e, ok
}

func (c *Cache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// All returns every cached entry, most recently updated first.
func (c *Cache) All() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	all := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].List.UpdatedAt.Equal(all[j].List.UpdatedAt) {
			return all[i].List.UpdatedAt.After(all[j].List.UpdatedAt)
		}
		return all[i].List.ID < all[j].List.ID
	})
	return all
}

// ApplyServer merges a fetched server view into the cache, server wins.
// Callers must not pass a partial fetch: a failed FetchAll means the server
// state is unknown, not empty.
func (c *Cache) ApplyServer(server []model.List) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	merged, err := Merge(c.locked(), server, ConflictPolicyServerWins)
	if err != nil {
		return err
	}
	c.entries = make(map[string]Entry, len(merged))
	for _, e := range merged {
		c.entries[e.List.ID] = e
	}
	return nil
}

// Unsynced returns the lists awaiting their first upload.
func (c *Cache) Unsynced() []model.List {
	c.mu.Lock()
	defer c.mu.Unlock()
	return FindUnsynced(c.locked(), nil)
}

// PushAll uploads every local-only list, typically right after an anonymous
// user signs in. Each list is marked StatePushing for the duration of its
// upload; on success the server's record (with its new identifier) replaces
// the local one as StateSynced, on any failure the list reverts to
// StateLocalOnly and is retried on a later pass. Push failures are
// collected, not fatal to the remaining lists — except authentication,
// which stops the pass since no further push can succeed.
func (c *Cache) PushAll(ctx context.Context, client *Client) error {
	var errs []error
	for _, list := range c.Unsynced() {
		if !c.transition(list.ID, StateLocalOnly, StatePushing) {
			continue // picked up by a concurrent pass
		}

		created, err := client.Create(ctx, list)
		if err != nil {
			c.transition(list.ID, StatePushing, StateLocalOnly)
			if errors.Is(err, ErrNotAuthenticated) {
				return ErrNotAuthenticated
			}
			errs = append(errs, fmt.Errorf("pushing list %s: %w", list.ID, err))
			continue
		}

		c.mu.Lock()
		delete(c.entries, list.ID)
		c.entries[created.ID] = Entry{List: *created, State: StateSynced}
		c.mu.Unlock()
	}
	return errors.Join(errs...)
}

// transition moves one entry from one state to another, reporting whether
// the entry was in the expected state.
func (c *Cache) transition(id string, from, to State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok || e.State != from {
		return false
	}
	e.State = to
	c.entries[id] = e
	return true
}

// locked snapshots the entries in deterministic order. Callers hold c.mu.
func (c *Cache) locked() []Entry {
	all := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].List.ID < all[j].List.ID })
	return all
}
