// Package classifier implements TxClassifier (spec.md §4.1-4.3 composition,
// referenced from spec.md's control-flow diagram): turning either a remote
// query result document or a raw peer transaction into a model.HistoricTx
// plus an optional model.TradeOffer.
//
// Grounded on
// _examples/original_source/slpdexdb_db/src/tx_history.rs (TxHistory,
// HistoricTx, from_entries, from_txs) and
// _examples/original_source/slpdexdb_db/src/tx_source.rs (the tx_result
// module's JSON document shape returned by the two upstream query
// endpoints).
package classifier

// Entry mirrors one document in a RemoteQueryClient result array
// (tx_result::TxEntry in the Rust predecessor): the already-parsed JSON
// shape returned by the bitdb/slpdb-family query endpoints.
type Entry struct {
	Blk     *EntryBlk
	TxHash  string // display (reversed) hex, as returned by the endpoint
	Inputs  []EntryInput
	Outputs []EntryOutput
	SLP     *EntrySLP
}

type EntryBlk struct {
	Timestamp int64
	Height    int32
}

type EntryInput struct {
	Address    *string // cashaddr text, nil if not a recognized address
	PrevTxHash string  // display hex
	PrevVout   int32
	IsOpReturn bool // b0 opcode == OP_RETURN marker on the input side
	// Stack holds the decoded b0..b4 push values (skipping absent/op-only
	// slots), used to reconstruct an EXCH unlocking script candidate.
	Stack [][]byte
}

type EntryOutput struct {
	ValueSats  uint64
	Address    *string
	IsOpReturn bool // b0 opcode == OP_RETURN
}

type EntrySLP struct {
	Decimals        int32
	TokenIDHex      string // big-endian display hex
	TransactionType string // GENESIS | MINT | SEND | COMMIT
	VersionType     int32
	// OutputAmounts[i] is the declared token amount of output i+1 (slot 0
	// is never an SLP amount carrier) as decimal text, parallel to
	// Outputs[1:].
	OutputAmounts []string
}
