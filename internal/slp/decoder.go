// Package slp decodes the OP_RETURN SLP payload of a transaction's first
// output (spec.md §4.2), grounded on
// _examples/original_source/slpdexdb_db/src/tx_history.rs
// (_process_slp_output).
package slp

import (
	"fmt"

	"github.com/slpdexd/indexer/internal/decimal"
	"github.com/slpdexd/indexer/internal/model"
	"github.com/slpdexd/indexer/internal/script"
)

// Lokad is the fixed 4-byte LOKAD id identifying the SLP protocol.
const Lokad = "SLP\x00"

const maxAmounts = 19

// Decoded is the structural result of a successful SLP OP_RETURN decode:
// the tx kind plus the per-output token amounts (index 0 is always the
// zero/OP_RETURN slot, matching HistoricTx.Outputs[0]).
type Decoded struct {
	Kind    model.TxKind
	Amounts []decimal.Amount
}

// TokenLookup resolves a token id to its metadata, fetching remotely on a
// cache miss (spec.md §4.4 TokenRegistry.get_or_fetch).
type TokenLookup interface {
	GetOrFetch(tokenID model.Hash) (model.Token, error)
}

// Decode implements the five-step algorithm of spec.md §4.2. Any
// structural failure is returned as InvalidSLPOutput (wrapping the more
// specific sentinel) and the caller demotes the owning tx to Default.
func Decode(firstOutputScript []byte, tokens TokenLookup) (Decoded, error) {
	if !script.IsOpReturn(firstOutputScript) {
		return Decoded{}, fmt.Errorf("%w: %w: not OP_RETURN", model.ErrInvalidSLPOutput, model.ErrNoMatch)
	}
	items, err := script.Parse(firstOutputScript)
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: %v", model.ErrInvalidSLPOutput, err)
	}
	if len(items) < 2 || !items[1].IsData() || string(items[1].Data) != Lokad {
		return Decoded{}, fmt.Errorf("%w: %w: not SLP", model.ErrInvalidSLPOutput, model.ErrNoMatch)
	}

	// step 2: SLP-safe — every data slot after OP_RETURN must be a direct
	// push of length [1, 0x4e].
	for _, it := range items[1:] {
		if !script.IsSLPSafeDataPush(it) {
			return Decoded{}, fmt.Errorf("%w: %w", model.ErrInvalidSLPOutput, model.ErrNotSLPSafe)
		}
	}

	// step 3: require >= 6 script items, counting the OP_RETURN opcode
	// (so at least five pushes: LOKAD, token type, subtype, token id and
	// one amount).
	if len(items) < 6 {
		return Decoded{}, fmt.Errorf("%w: %w: have %d", model.ErrInvalidSLPOutput, model.ErrTooFewPushops, len(items))
	}

	pushes := items[1:] // drop OP_RETURN opcode itself
	// pushes[0] = LOKAD, pushes[1] = token_type, pushes[2] = subtype,
	// pushes[3] = token_id, pushes[4:] = amounts.
	tokenTypeBytes := pushes[1].Data
	if len(tokenTypeBytes) != 1 && len(tokenTypeBytes) != 2 {
		return Decoded{}, fmt.Errorf("%w: %w: length %d", model.ErrInvalidSLPOutput, model.ErrInvalidTokenTypeLen, len(tokenTypeBytes))
	}
	var tokenType int32
	for _, b := range tokenTypeBytes {
		tokenType = tokenType<<8 | int32(b)
	}

	subtypeStr := string(pushes[2].Data)
	subtype, ok := model.SLPSubtypeFromString(subtypeStr)
	if !ok {
		return Decoded{}, fmt.Errorf("%w: %w: %q", model.ErrInvalidSLPOutput, model.ErrInvalidSLPType, subtypeStr)
	}

	tokenIDBytes := pushes[3].Data
	if len(tokenIDBytes) != 32 {
		return Decoded{}, fmt.Errorf("%w: %w: length %d", model.ErrInvalidSLPOutput, model.ErrInvalidTokenHashLen, len(tokenIDBytes))
	}
	var tokenID model.Hash
	for i, b := range tokenIDBytes {
		tokenID[31-i] = b
	}

	amountPushes := pushes[4:]
	if len(amountPushes) > maxAmounts {
		return Decoded{}, fmt.Errorf("%w: %w: %d", model.ErrInvalidSLPOutput, model.ErrTooManyAmounts, len(amountPushes))
	}

	token, err := tokens.GetOrFetch(tokenID)
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: %v", model.ErrUnknownTokenID, err)
	}

	amounts := make([]decimal.Amount, 0, len(amountPushes)+1)
	amounts = append(amounts, decimal.Zero(token.Decimals)) // output slot 0
	for _, p := range amountPushes {
		amt, err := decimal.FromBigEndianU64(p.Data, token.Decimals)
		if err != nil {
			return Decoded{}, fmt.Errorf("%w: %v", model.ErrInvalidSLPOutput, err)
		}
		amounts = append(amounts, amt)
	}

	kind := model.TxKind{IsSLP: true, TokenID: tokenID, TokenType: tokenType, Subtype: subtype}
	return Decoded{Kind: kind, Amounts: amounts}, nil
}
