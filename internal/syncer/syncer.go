// Package syncer reconciles a client-resident list cache with the
// authoritative server store. The server is the source of truth on read;
// the client is the source of truth on write until the server acknowledges.
package syncer

import (
	"errors"

	"github.com/farhan/ranklab/internal/model"
)

// Sentinel results callers branch on. Both are expected outcomes, not
// failures: ErrNotAuthenticated means the operation does not apply and the
// caller should rely on the local cache; ErrNotFound on update means fall
// back to local-only state.
var (
	ErrNotAuthenticated = errors.New("syncer: not authenticated")
	ErrNotFound         = errors.New("syncer: record not found")
)

// State tracks where a cached list sits in its push lifecycle.
type State string

const (
	// StateLocalOnly marks a list that exists only in the cache.
	StateLocalOnly State = "local_only"
	// StatePushing marks a list whose first upload is in flight.
	StatePushing State = "pushing"
	// StateSynced marks a list the server has acknowledged.
	StateSynced State = "synced"
)

// Entry is one cached list together with its sync state.
type Entry struct {
	List  model.List
	State State
}

// ConflictPolicy names a strategy for reconciling a local record with a
// server record carrying the same ID.
type ConflictPolicy string

// ConflictPolicyServerWins overwrites the local record with the server's,
// unconditionally. No field-level merge, no timestamp comparison.
const ConflictPolicyServerWins ConflictPolicy = "server_wins"

// Merge produces a unified view of local entries and server records, keyed
// by list ID. Server records overwrite same-ID local entries and are tagged
// StateSynced; local-only entries pass through untouched. Merging the same
// inputs twice yields the same output.
//
// Order is deterministic: surviving local entries keep their positions,
// server records unknown locally are appended in server order.
func Merge(local []Entry, server []model.List, policy ConflictPolicy) ([]Entry, error) {
	if policy != ConflictPolicyServerWins {
		return nil, errors.New("syncer: unknown conflict policy " + string(policy))
	}

	byID := make(map[string]model.List, len(server))
	for _, s := range server {
		byID[s.ID] = s
	}

	merged := make([]Entry, 0, len(local)+len(server))
	seen := make(map[string]bool, len(local))
	for _, e := range local {
		seen[e.List.ID] = true
		if s, ok := byID[e.List.ID]; ok {
			merged = append(merged, Entry{List: s, State: StateSynced})
			continue
		}
		merged = append(merged, e)
	}
	for _, s := range server {
		if !seen[s.ID] {
			merged = append(merged, Entry{List: s, State: StateSynced})
		}
	}
	return merged, nil
}

// FindUnsynced returns local lists that are candidates for a first-time
// upload: absent from the server set and never acknowledged. Entries whose
// push is in flight are skipped; a failed push returns them to
// StateLocalOnly and they show up on the next pass.
func FindUnsynced(local []Entry, server []model.List) []model.List {
	onServer := make(map[string]bool, len(server))
	for _, s := range server {
		onServer[s.ID] = true
	}

	var unsynced []model.List
	for _, e := range local {
		if e.State == StateLocalOnly && !onServer[e.List.ID] {
			unsynced = append(unsynced, e.List)
		}
	}
	return unsynced
}
