// Package indexer implements the checkpointed resync engine (spec.md
// §4.7): three monotone pull loops (tokens, EXCH trade offers, per-address
// history) plus the live peer-tx ingestion path.
//
// Grounded on
// _examples/original_source/slpdexdb_endpoint/src/actors/resync_actor.rs.
package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/wire"

	"github.com/slpdexd/indexer/internal/classifier"
	"github.com/slpdexd/indexer/internal/model"
	"github.com/slpdexd/indexer/internal/remote"
	"github.com/slpdexd/indexer/internal/store"
	"github.com/slpdexd/indexer/internal/tradeoffer"
	"github.com/slpdexd/indexer/internal/validator"
)

// TokenLookup resolves token metadata, satisfied by *internal/token.Registry
// and also structurally satisfies classifier.TokenLookup/slp.TokenLookup.
type TokenLookup interface {
	GetOrFetch(id model.Hash) (model.Token, error)
}

// TokenSource fetches pages of token metadata (remote.Client.RequestTokens).
type TokenSource interface {
	RequestTokens(ctx context.Context, filters ...remote.Filter) ([]model.Token, error)
}

// TxSource fetches pages of transaction entries from either upstream query
// endpoint (remote.Client.RequestTxs).
type TxSource interface {
	RequestTxs(ctx context.Context, endpoint remote.Endpoint, confirmedness remote.Confirmedness, filters ...remote.Filter) ([]classifier.Entry, error)
}

// Engine ties the remote query client, the classifier/validator, and the
// relational store into the resync control flow (spec.md §4.7).
type Engine struct {
	Store    *store.Store
	Tokens   TokenSource
	Txs      TxSource
	Lookup   TokenLookup
	Validity validator.ValidityOracle
	TradeCfg tradeoffer.Config
}

// nextFilters reproduces UpdateHistory::next_filters: resume mid-page via
// MinTxHash when the last pull was interrupted, otherwise start a fresh
// page at MinBlockHeight so newly-confirmed history since the last
// completed cycle is picked up.
func nextFilters(cp model.UpdateCheckpoint) []remote.Filter {
	filters := []remote.Filter{remote.SortByTxHash()}
	if cp.LastTxHash != nil && !cp.Completed {
		filters = append(filters, remote.MinTxHash(*cp.LastTxHash))
	} else {
		filters = append(filters, remote.MinBlockHeight(cp.LastHeight))
	}
	return filters
}

// checkpointFromResults reproduces UpdateHistory::from_tx_history: the new
// cursor advances to the highest confirmed height seen (falling back to
// currentHeight when the batch was all-unconfirmed or empty) and the last
// tx hash in the (hash-sorted) batch; Completed is true exactly when the
// batch was empty, signaling the loop to stop and the next cycle to resume
// from height rather than hash.
func checkpointFromResults(subject model.Subject, results []classifier.Result, currentHeight int32) model.UpdateCheckpoint {
	cp := model.UpdateCheckpoint{Subject: subject, LastHeight: currentHeight, Completed: len(results) == 0, Timestamp: now()}
	found := false
	for _, r := range results {
		if r.Tx.Height != nil && (!found || *r.Tx.Height > cp.LastHeight) {
			cp.LastHeight = *r.Tx.Height
			found = true
		}
	}
	if len(results) > 0 {
		h := results[len(results)-1].Tx.Hash
		cp.LastTxHash = &h
	}
	return cp
}

// checkpointFromTokens reproduces UpdateHistory::from_tokens.
func checkpointFromTokens(tokens []model.Token, currentHeight int32) model.UpdateCheckpoint {
	subject := model.Subject{Kind: model.SubjectToken, IsConfirmed: true}
	cp := model.UpdateCheckpoint{Subject: subject, LastHeight: currentHeight, Completed: len(tokens) == 0, Timestamp: now()}
	found := false
	for _, t := range tokens {
		if !found || t.BlockCreatedHeight > cp.LastHeight {
			cp.LastHeight = t.BlockCreatedHeight
			found = true
		}
	}
	if len(tokens) > 0 {
		h := tokens[len(tokens)-1].ID
		cp.LastTxHash = &h
	}
	return cp
}

func now() int64 { return time.Now().Unix() }

func (e *Engine) currentHeight() (int32, error) {
	tip, ok, err := e.Store.HeaderTip()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return tip.Height, nil
}

// ResyncTokens pulls token metadata pages until a page comes back empty,
// grounded on resync_actor.rs's _resync_tokens.
func (e *Engine) ResyncTokens(ctx context.Context) error {
	for {
		height, err := e.currentHeight()
		if err != nil {
			return fmt.Errorf("resync tokens: header tip: %w", err)
		}

		subject := model.Subject{Kind: model.SubjectToken, IsConfirmed: true}
		cp, ok, err := e.Store.LastUpdate(subject)
		if err != nil {
			return fmt.Errorf("resync tokens: last update: %w", err)
		}
		if !ok {
			cp = model.Initial(subject)
		}

		tokens, err := e.Tokens.RequestTokens(ctx, nextFilters(cp)...)
		if err != nil {
			return fmt.Errorf("resync tokens: request: %w", err)
		}
		if len(tokens) == 0 {
			return nil
		}

		if err := e.Store.AddTokens(tokens); err != nil {
			return fmt.Errorf("resync tokens: add: %w", err)
		}
		if err := e.Store.AddUpdateCheckpoint(checkpointFromTokens(tokens, height)); err != nil {
			return fmt.Errorf("resync tokens: checkpoint: %w", err)
		}
	}
}

// ResyncTradeOffers pulls EXCH-covenant transactions until a page comes
// back empty, then rebuilds the trade-offer UTXO projection, grounded on
// resync_actor.rs's _resync_trade_offers.
func (e *Engine) ResyncTradeOffers(ctx context.Context) error {
	subject := model.Subject{Kind: model.SubjectExch, IsConfirmed: true}
	for {
		height, err := e.currentHeight()
		if err != nil {
			return fmt.Errorf("resync trade offers: header tip: %w", err)
		}

		cp, ok, err := e.Store.LastUpdate(subject)
		if err != nil {
			return fmt.Errorf("resync trade offers: last update: %w", err)
		}
		if !ok {
			cp = model.Initial(subject)
		}

		filters := append(nextFilters(cp), remote.Exch(e.TradeCfg.Version))
		entries, err := e.Txs.RequestTxs(ctx, remote.EndpointSLP, remote.Both, filters...)
		if err != nil {
			return fmt.Errorf("resync trade offers: request: %w", err)
		}

		results, err := classifier.FromEntries(entries, now(), e.TradeCfg, e.Lookup)
		if err != nil {
			return fmt.Errorf("resync trade offers: classify: %w", err)
		}
		if len(results) == 0 {
			break
		}

		if err := e.Store.AddTxHistory(results); err != nil {
			return fmt.Errorf("resync trade offers: persist: %w", err)
		}
		if err := e.Store.AddUpdateCheckpoint(checkpointFromResults(subject, results, height)); err != nil {
			return fmt.Errorf("resync trade offers: checkpoint: %w", err)
		}
	}
	if err := e.Store.RebuildUtxoTradeOffers(); err != nil {
		return fmt.Errorf("resync trade offers: rebuild utxo set: %w", err)
	}
	return nil
}

// ResyncAddress pulls one address's full history until a page comes back
// empty, then rebuilds its UTXO projection, grounded on resync_actor.rs's
// _resync_address.
func (e *Engine) ResyncAddress(ctx context.Context, addr model.AddressHash) error {
	hashBytes := append([]byte(nil), addr.Bytes[:]...)
	subject := model.Subject{Kind: model.SubjectAddressHistory, Hash: &hashBytes, IsConfirmed: true}

	for {
		height, err := e.currentHeight()
		if err != nil {
			return fmt.Errorf("resync address %s: header tip: %w", addr, err)
		}

		cp, ok, err := e.Store.LastUpdate(subject)
		if err != nil {
			return fmt.Errorf("resync address %s: last update: %w", addr, err)
		}
		if !ok {
			cp = model.Initial(subject)
		}

		filters := append(nextFilters(cp), remote.Address(addr))
		entries, err := e.Txs.RequestTxs(ctx, remote.EndpointSLP, remote.Both, filters...)
		if err != nil {
			return fmt.Errorf("resync address %s: request: %w", addr, err)
		}

		results, err := classifier.FromEntries(entries, now(), e.TradeCfg, e.Lookup)
		if err != nil {
			return fmt.Errorf("resync address %s: classify: %w", addr, err)
		}

		if len(results) > 0 {
			if err := e.Store.AddTxHistory(results); err != nil {
				return fmt.Errorf("resync address %s: persist: %w", addr, err)
			}
		}
		if err := e.Store.AddUpdateCheckpoint(checkpointFromResults(subject, results, height)); err != nil {
			return fmt.Errorf("resync address %s: checkpoint: %w", addr, err)
		}
		if len(results) == 0 {
			break
		}
	}
	if err := e.Store.RebuildUtxoAddress(addr); err != nil {
		return fmt.Errorf("resync address %s: rebuild utxo set: %w", addr, err)
	}
	return nil
}

// RawScripts extracts a raw peer transaction's input/output scripts in
// positional order, bridging wire.MsgTx to the classifier's raw-script
// parameters.
type RawScripts func(tx *wire.MsgTx) (inputScripts, outputScripts [][]byte)

// touchesSubscribed reports whether any output/input address in results is
// in subscribed, or any result carries a trade offer — the same relevance
// filter as resync_actor.rs's Handler<ProcessTransactions>.
func touchesSubscribed(results []classifier.Result, subscribed map[model.AddressHash]struct{}) bool {
	for _, r := range results {
		if r.Offer != nil {
			return true
		}
		for _, out := range r.Tx.Outputs {
			if out.Output.Tag == model.OutputAddress {
				if _, ok := subscribed[out.Output.Address]; ok {
					return true
				}
			}
		}
		for _, in := range r.Tx.Inputs {
			if in.Output.Tag == model.OutputAddress {
				if _, ok := subscribed[in.Output.Address]; ok {
					return true
				}
			}
		}
	}
	return false
}

// ProcessTransactions classifies a batch of freshly-seen peer transactions
// and, only when the batch touches a subscribed address or produces a
// trade offer, validates SLP conservation and persists it — returning the
// persisted batch for the caller to hand to the broadcast fabric. A batch
// that touches nothing subscribed returns (nil, nil): classified but
// deliberately not persisted, matching resync_actor.rs's early return.
func (e *Engine) ProcessTransactions(txs []*wire.MsgTx, rawScripts RawScripts, subscribed map[model.AddressHash]struct{}) ([]classifier.Result, error) {
	results, err := classifier.FromTxs(txs, rawScripts, now(), e.Lookup, e.TradeCfg)
	if err != nil {
		return nil, fmt.Errorf("process transactions: classify: %w", err)
	}
	if !touchesSubscribed(results, subscribed) {
		return nil, nil
	}
	if err := validator.Validate(results, e.Validity); err != nil {
		return nil, fmt.Errorf("process transactions: validate: %w", err)
	}
	if err := e.Store.AddTxHistory(results); err != nil {
		return nil, fmt.Errorf("process transactions: persist: %w", err)
	}
	return results, nil
}
