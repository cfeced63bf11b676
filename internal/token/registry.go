// Package token implements TokenRegistry (spec.md §4.4): a cache of token
// metadata that lazily fills from a remote token source, grounded on
// _examples/original_source/slpdexdb_endpoint/src/actors/resync_actor.rs
// (_resync_tokens / Token::from_entry) for the fetch-then-upsert shape.
package token

import (
	"fmt"
	"sync"

	"github.com/slpdexd/indexer/internal/model"
)

// Store is the subset of the persistence layer TokenRegistry needs
// (satisfied by internal/store.Store).
type Store interface {
	Token(id model.Hash) (model.Token, bool, error)
	AddTokens(tokens []model.Token) error
}

// RemoteSource fetches token metadata not yet known locally.
type RemoteSource interface {
	Fetch(ids []model.Hash) ([]model.Token, error)
}

// Registry implements TokenLookup for internal/slp and caches hits
// in-process on top of Store to avoid a DB round trip per decode.
type Registry struct {
	store  Store
	remote RemoteSource

	mu    sync.RWMutex
	cache map[model.Hash]model.Token
}

func New(store Store, remote RemoteSource) *Registry {
	return &Registry{store: store, remote: remote, cache: make(map[model.Hash]model.Token)}
}

// GetOrFetch resolves token metadata: in-process cache, then Store, then
// RemoteSource.Fetch on a miss. A token lacking BlockCreatedHeight or
// Timestamp (not yet mined) fails TokenNotMinedYet — a transient error the
// caller may retry (spec.md §4.4).
func (r *Registry) GetOrFetch(id model.Hash) (model.Token, error) {
	r.mu.RLock()
	if t, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return t, nil
	}
	r.mu.RUnlock()

	if stored, ok, err := r.store.Token(id); err != nil {
		return model.Token{}, fmt.Errorf("token lookup: %w", err)
	} else if ok {
		r.put(stored)
		return stored, nil
	}

	fetched, err := r.remote.Fetch([]model.Hash{id})
	if err != nil {
		return model.Token{}, fmt.Errorf("token fetch: %w", err)
	}
	if len(fetched) == 0 {
		return model.Token{}, fmt.Errorf("%w: %s", model.ErrUnknownTokenID, id)
	}
	t := fetched[0]
	if t.BlockCreatedHeight == 0 || t.Timestamp == 0 {
		return model.Token{}, fmt.Errorf("%w: %s", model.ErrTokenNotMinedYet, id)
	}
	if err := r.store.AddTokens([]model.Token{t}); err != nil {
		return model.Token{}, fmt.Errorf("token upsert: %w", err)
	}
	r.put(t)
	return t, nil
}

func (r *Registry) put(t model.Token) {
	r.mu.Lock()
	r.cache[t.ID] = t
	r.mu.Unlock()
}
