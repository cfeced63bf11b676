package broadcast

import (
	"log/slog"
	"sync"

	"github.com/slpdexd/indexer/internal/model"
)

// Subscriber receives streaming events for whichever addresses/tokens it
// is currently listening to. Implemented by internal/session.Session;
// notifications run on the publishing goroutine, so implementations must
// not block (spec.md §6.4 expects a session to own a buffered outbound
// queue).
type Subscriber interface {
	NotifyAddressUtxoDelta(addr model.AddressHash, delta AddressUtxoDelta)
	NotifyTradeOfferUtxoDelta(token model.Hash, delta TradeOfferUtxoDelta)
	NotifyAddressTxDeltas(addr model.AddressHash, deltas []model.TxDelta)
}

// Bus tracks, per address and per token, which Subscribers are currently
// listening, and fans out delta events to them. Grounded on
// broadcast_actor.rs's subscriber registries (BroadcastActor's
// address_subscribers/trade_offer_subscribers maps), expressed with a
// mutex-guarded map instead of an actor mailbox since nothing here blocks
// on I/O.
type Bus struct {
	mu        sync.RWMutex
	byAddress map[model.AddressHash]map[string]Subscriber
	byToken   map[model.Hash]map[string]Subscriber
}

// NewBus returns an empty subscription bus.
func NewBus() *Bus {
	return &Bus{
		byAddress: make(map[model.AddressHash]map[string]Subscriber),
		byToken:   make(map[model.Hash]map[string]Subscriber),
	}
}

// Subscribe registers sub, keyed by id, for addr's events.
func (b *Bus) Subscribe(id string, sub Subscriber, addr model.AddressHash) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.byAddress[addr]
	if !ok {
		set = make(map[string]Subscriber)
		b.byAddress[addr] = set
	}
	set[id] = sub
	slog.Debug("address subscribed", "address", addr, "session", id)
}

// Unsubscribe removes id's interest in addr.
func (b *Bus) Unsubscribe(id string, addr model.AddressHash) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.byAddress[addr]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(b.byAddress, addr)
		}
	}
}

// SubscribeToken registers sub, keyed by id, for token's trade-offer
// events — the replace-the-whole-set semantics of a ListenToTokens frame
// live in internal/session, which calls UnsubscribeToken/SubscribeToken
// per id on every frame.
func (b *Bus) SubscribeToken(id string, sub Subscriber, token model.Hash) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.byToken[token]
	if !ok {
		set = make(map[string]Subscriber)
		b.byToken[token] = set
	}
	set[id] = sub
}

// UnsubscribeToken removes id's interest in token.
func (b *Bus) UnsubscribeToken(id string, token model.Hash) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.byToken[token]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(b.byToken, token)
		}
	}
}

// UnsubscribeAll drops every subscription held by id, used on session
// disconnect.
func (b *Bus) UnsubscribeAll(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for addr, set := range b.byAddress {
		delete(set, id)
		if len(set) == 0 {
			delete(b.byAddress, addr)
		}
	}
	for token, set := range b.byToken {
		delete(set, id)
		if len(set) == 0 {
			delete(b.byToken, token)
		}
	}
}

// PublishAddressUtxoDeltas fans out address UTXO deltas to their
// subscribers.
func (b *Bus) PublishAddressUtxoDeltas(deltas map[model.AddressHash]AddressUtxoDelta) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for addr, delta := range deltas {
		for _, sub := range b.byAddress[addr] {
			sub.NotifyAddressUtxoDelta(addr, delta)
		}
	}
}

// PublishTradeOfferUtxoDeltas fans out trade-offer UTXO deltas to their
// subscribers.
func (b *Bus) PublishTradeOfferUtxoDeltas(deltas map[model.Hash]TradeOfferUtxoDelta) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for token, delta := range deltas {
		for _, sub := range b.byToken[token] {
			sub.NotifyTradeOfferUtxoDelta(token, delta)
		}
	}
}

// PublishAddressTxDeltas fans out per-address tx-history deltas to their
// subscribers.
func (b *Bus) PublishAddressTxDeltas(deltas map[model.AddressHash][]model.TxDelta) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for addr, list := range deltas {
		for _, sub := range b.byAddress[addr] {
			sub.NotifyAddressTxDeltas(addr, list)
		}
	}
}

// Relevant returns the set of addresses currently subscribed to, the
// filter ResyncEngine.ProcessTransactions and the delta functions above
// need to decide whether a live tx is worth persisting/broadcasting.
func (b *Bus) Relevant() map[model.AddressHash]struct{} {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[model.AddressHash]struct{}, len(b.byAddress))
	for addr := range b.byAddress {
		out[addr] = struct{}{}
	}
	return out
}
