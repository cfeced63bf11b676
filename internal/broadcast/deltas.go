// Package broadcast implements the streaming fan-out fabric (spec.md
// §4.9): turning a freshly-persisted classified batch into the three
// incremental event shapes (address UTXO deltas, trade-offer UTXO
// deltas, address tx-history deltas) and a subscription bus that routes
// each to the sessions listening for it.
//
// Grounded on
// _examples/original_source/slpdexdb_endpoint/src/actors/broadcast_actor.rs
// (UpdateDbUtxosActor, BroadcastAddressUtxosActor,
// BroadcastTradeOfferUtxosActor, BroadcastTxHistoryActor, BroadcastActor).
package broadcast

import (
	"fmt"

	"github.com/slpdexd/indexer/internal/classifier"
	"github.com/slpdexd/indexer/internal/decimal"
	"github.com/slpdexd/indexer/internal/model"
)

// AddressUtxoDelta is one address's incremental UTXO set change.
type AddressUtxoDelta struct {
	Add    []model.Utxo
	Remove []model.SpentUtxo
}

// TradeOfferUtxoDelta is one token's incremental EXCH-covenant UTXO set
// change.
type TradeOfferUtxoDelta struct {
	Add    []model.TradeOffer
	Remove []model.SpentUtxo
}

// ProjectionStore is the subset of internal/store.Store the UTXO
// projection writer needs.
type ProjectionStore interface {
	RemoveUtxos(spent []model.SpentUtxo) error
	AddUtxos(added []model.NewUtxo) error
}

// OutputStore resolves previously-seen outputs, needed to compute the
// satoshi/token delta an input leg subtracts.
type OutputStore interface {
	TxOutputs(refs []model.SpentUtxo) (map[model.SpentUtxo]model.TxOutput, error)
}

// ProjectUtxos applies a classified batch's effect to the persisted UTXO
// projections. Every address-owned output is added unconditionally (the
// projection table is the durable global source of truth, rebuilt in full
// on a subject's first resync regardless of what the live path warmed);
// a spent prevout is retracted only when its own address is in relevant
// or the spending tx carries a trade offer, matching
// UpdateDbUtxosActor's input-side filter exactly.
func ProjectUtxos(store ProjectionStore, results []classifier.Result, relevant map[model.AddressHash]struct{}) error {
	var remove []model.SpentUtxo
	var add []model.NewUtxo
	for _, r := range results {
		for _, in := range r.Tx.Inputs {
			isRelevantAddr := in.Output.Tag == model.OutputAddress
			if isRelevantAddr {
				if _, ok := relevant[in.Output.Address]; !ok {
					isRelevantAddr = false
				}
			}
			if !isRelevantAddr && r.Offer == nil {
				continue
			}
			remove = append(remove, model.SpentUtxo{TxHash: in.PrevTx, Vout: in.PrevVout})
		}
		for idx, out := range r.Tx.Outputs {
			switch {
			case out.Output.Tag == model.OutputAddress:
				add = append(add, model.NewUtxo{
					Kind: model.NewUtxoAddress, TxHash: r.Tx.Hash, Vout: int32(idx), Address: out.Output.Address,
				})
			case r.Offer != nil:
				add = append(add, model.NewUtxo{Kind: model.NewUtxoTradeOffer, TxHash: r.Tx.Hash, Vout: int32(idx)})
			}
		}
	}
	if err := store.RemoveUtxos(remove); err != nil {
		return fmt.Errorf("project utxos: remove: %w", err)
	}
	if err := store.AddUtxos(add); err != nil {
		return fmt.Errorf("project utxos: add: %w", err)
	}
	return nil
}

// AddressUtxoDeltas computes, per subscribed address, which UTXOs the
// batch created or spent. Grounded on BroadcastAddressUtxosActor.
func AddressUtxoDeltas(results []classifier.Result, relevant map[model.AddressHash]struct{}) map[model.AddressHash]AddressUtxoDelta {
	out := make(map[model.AddressHash]AddressUtxoDelta)
	for _, r := range results {
		for _, in := range r.Tx.Inputs {
			if in.Output.Tag != model.OutputAddress {
				continue
			}
			addr := in.Output.Address
			if _, ok := relevant[addr]; !ok {
				continue
			}
			d := out[addr]
			d.Remove = append(d.Remove, model.SpentUtxo{TxHash: in.PrevTx, Vout: in.PrevVout})
			out[addr] = d
		}
		for idx, o := range r.Tx.Outputs {
			if o.Output.Tag != model.OutputAddress {
				continue
			}
			addr := o.Output.Address
			if _, ok := relevant[addr]; !ok {
				continue
			}
			d := out[addr]
			d.Add = append(d.Add, model.Utxo{
				TxHash: r.Tx.Hash, Vout: int32(idx), TokenHash: r.Tx.Kind.TokenHash(),
				ValueSats: o.ValueSats, ValueToken: o.ValueToken,
			})
			out[addr] = d
		}
	}
	return out
}

// TradeOfferUtxoDeltas computes, per token, which trade offers the batch
// created or retracted. Grounded on BroadcastTradeOfferUtxosActor.
func TradeOfferUtxoDeltas(results []classifier.Result) map[model.Hash]TradeOfferUtxoDelta {
	out := make(map[model.Hash]TradeOfferUtxoDelta)
	for _, r := range results {
		if r.Offer == nil {
			continue
		}
		tokenHash := r.Tx.Kind.TokenHash()
		if tokenHash == nil {
			continue
		}
		d := out[*tokenHash]
		if r.Offer.Matched() {
			d.Add = append(d.Add, *r.Offer)
		}
		d.Remove = append(d.Remove, model.SpentUtxo{TxHash: r.Offer.InputTx, Vout: r.Offer.InputIdx})
		out[*tokenHash] = d
	}
	return out
}

// AddressTxDeltas computes, per subscribed address touched by the batch,
// the per-tx balance change — looking up each spent prevout's prior value
// via store.TxOutputs so an input leg can be netted against an output
// leg within the same tx. Grounded on BroadcastTxHistoryActor.
func AddressTxDeltas(store OutputStore, results []classifier.Result, relevant map[model.AddressHash]struct{}, now int64) (map[model.AddressHash][]model.TxDelta, error) {
	var refs []model.SpentUtxo
	for _, r := range results {
		for _, in := range r.Tx.Inputs {
			if in.Output.Tag != model.OutputAddress {
				continue
			}
			if _, ok := relevant[in.Output.Address]; ok {
				refs = append(refs, model.SpentUtxo{TxHash: in.PrevTx, Vout: in.PrevVout})
			}
		}
	}
	prevOutputs, err := store.TxOutputs(refs)
	if err != nil {
		return nil, fmt.Errorf("address tx deltas: %w", err)
	}

	out := make(map[model.AddressHash][]model.TxDelta)
	for _, r := range results {
		decimals := uint8(0)
		if len(r.Tx.Outputs) > 0 {
			decimals = r.Tx.Outputs[0].ValueToken.Decimals()
		}
		sats := make(map[model.AddressHash]int64)
		tokens := make(map[model.AddressHash]decimal.Amount)
		touch := func(addr model.AddressHash) {
			if _, ok := tokens[addr]; !ok {
				tokens[addr] = decimal.Zero(decimals)
			}
		}

		for _, in := range r.Tx.Inputs {
			if in.Output.Tag != model.OutputAddress {
				continue
			}
			addr := in.Output.Address
			if _, ok := relevant[addr]; !ok {
				continue
			}
			prevOut, ok := prevOutputs[model.SpentUtxo{TxHash: in.PrevTx, Vout: in.PrevVout}]
			if !ok {
				continue
			}
			touch(addr)
			sats[addr] -= int64(prevOut.ValueSats)
			if diff, err := tokens[addr].Sub(prevOut.ValueToken); err == nil {
				tokens[addr] = diff
			}
		}
		for _, o := range r.Tx.Outputs {
			if o.Output.Tag != model.OutputAddress {
				continue
			}
			addr := o.Output.Address
			if _, ok := relevant[addr]; !ok {
				continue
			}
			touch(addr)
			sats[addr] += int64(o.ValueSats)
			if sum, err := tokens[addr].Add(o.ValueToken); err == nil {
				tokens[addr] = sum
			}
		}

		for addr, tokenDelta := range tokens {
			out[addr] = append(out[addr], model.TxDelta{
				TxHash:        r.Tx.Hash,
				TokenHash:     r.Tx.Kind.TokenHash(),
				Timestamp:     now,
				DeltaSatoshis: sats[addr],
				DeltaToken:    tokenDelta,
			})
		}
	}
	return out, nil
}
