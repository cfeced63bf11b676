package model

import "github.com/slpdexd/indexer/internal/decimal"

// Utxo is a materialized unspent-output projection row (spec.md §3).
type Utxo struct {
	TxHash     Hash
	Vout       int32
	TokenHash  *Hash
	ValueSats  uint64
	ValueToken decimal.Amount
}

// SpentUtxo identifies a (tx, vout) pair to retract from a projection.
type SpentUtxo struct {
	TxHash Hash
	Vout   int32
}

// NewUtxoKind tags whether an incremental addition targets the
// address-keyed or trade-offer-keyed projection.
type NewUtxoKind int

const (
	NewUtxoAddress NewUtxoKind = iota
	NewUtxoTradeOffer
)

// NewUtxo is an incremental addition used during live streaming
// (spec.md §4.8 add_utxos).
type NewUtxo struct {
	Kind    NewUtxoKind
	TxHash  Hash
	Vout    int32
	Address AddressHash
}

// TxDelta is a per-(tx, address) balance change (spec.md §4.8
// address_tx_deltas / §4.9 AddressNewTxDeltas).
type TxDelta struct {
	TxHash        Hash
	TokenHash     *Hash
	Timestamp     int64
	DeltaSatoshis int64
	DeltaToken    decimal.Amount
}
