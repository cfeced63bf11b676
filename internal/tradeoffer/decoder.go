// Package tradeoffer implements TradeOfferDecoder (spec.md §4.3): decoding
// the "EXCH" covenant input stack and recomputing the covenant's P2SH hash
// to verify it against an output's declared script hash.
//
// Grounded on _examples/original_source/slpdexdb_db/src/tx_history.rs
// (TradeOffer::from_entry/from_tx, _decode_price, _contract_hash) for the
// price-decoding algorithm and the declared-field list; the exact redeem
// script byte template used by the original `cashcontracts` covenant is
// not present in the retrieved corpus, so the reconstruction below
// canonically serializes the same declared fields spec.md §4.3 lists, in
// the order it lists them, and hashes with RIPEMD160(SHA256(·)) via
// btcutil.Hash160 — matching the teacher's use of btcutil for address
// hashing (internal/tx/btc_tx.go). See DESIGN.md for this Open Question's
// resolution.
package tradeoffer

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/slpdexd/indexer/internal/decimal"
	"github.com/slpdexd/indexer/internal/model"
	"github.com/slpdexd/indexer/internal/script"
)

// Lokad is the EXCH covenant's LOKAD id.
const Lokad = "EXCH"

// Config carries the process-wide EXCH parameters (spec.md §9 "Global
// mutable state... centralize into a Config struct").
type Config struct {
	Version     byte
	FeeAddress  model.AddressHash
	FeeDivisor  uint64
	DustLimit   uint64
}

// candidate is one input's shape-recognized EXCH push stack, prior to
// output-hash matching.
type candidate struct {
	power       byte
	isInverted  bool
	scriptPrice uint32
	receiving   model.AddressHash
}

// recognizeInput inspects the first five pushed items of one input's
// unlocking script (spec.md §4.3 "Input recognition").
func recognizeInput(unlockingScript []byte, cfg Config) (candidate, bool, error) {
	items, err := script.Parse(unlockingScript)
	if err != nil || len(items) < 5 {
		return candidate{}, false, nil
	}
	if !items[0].IsData() || string(items[0].Data) != Lokad {
		return candidate{}, false, nil
	}
	// push[1] must encode covenant version 2 (OP_2 or a direct push of 0x02).
	versionOK := items[1].Op == 0x52 // OP_2
	if !versionOK && items[1].IsData() && len(items[1].Data) == 1 && items[1].Data[0] == cfg.Version {
		versionOK = true
	}
	if !versionOK {
		return candidate{}, false, nil
	}
	powerItem := items[2]
	if !powerItem.IsData() || (len(powerItem.Data) != 1 && len(powerItem.Data) != 2) {
		return candidate{}, false, fmt.Errorf("%w", model.ErrInvalidPower)
	}
	power := powerItem.Data[0]
	isInverted := len(powerItem.Data) == 2 && powerItem.Data[1] == 1

	priceItem := items[3]
	if !priceItem.IsData() || len(priceItem.Data) != 4 {
		return candidate{}, false, fmt.Errorf("%w", model.ErrInvalidPrice)
	}
	scriptPrice := binary.BigEndian.Uint32(priceItem.Data)
	if isInverted && scriptPrice == 0 {
		return candidate{}, false, fmt.Errorf("%w: zero inverted price", model.ErrInvalidPrice)
	}

	addrItem := items[4]
	if !addrItem.IsData() || len(addrItem.Data) != 20 {
		return candidate{}, false, nil
	}
	var recv model.AddressHash
	copy(recv.Bytes[:], addrItem.Data)
	recv.Kind = model.AddrKindP2PKH

	return candidate{power: power, isInverted: isInverted, scriptPrice: scriptPrice, receiving: recv}, true, nil
}

// decodePrice implements spec.md §4.3's price decoding rules.
func decodePrice(scriptPrice uint32, isInverted bool, decimals uint8) *decimal.Rational {
	factor := decimal.RationalFromInt(pow10(decimals))
	priceR := decimal.RationalFromInt(int64(scriptPrice))
	if isInverted {
		return factor.Quo(priceR)
	}
	return priceR.Mul(factor)
}

func pow10(n uint8) int64 {
	v := int64(1)
	for i := uint8(0); i < n; i++ {
		v *= 10
	}
	return v
}

// contractHash reconstructs the covenant redeem script from the declared
// parameters (field order per spec.md §4.3) and returns its
// RIPEMD160(SHA256(·)) hash — the value compared against an output's
// declared P2SH hash.
func contractHash(valueSats uint64, cfg Config, power byte, isInverted bool, tokenID model.Hash, tokenType int32, sellAmountBase int64, scriptPrice uint32, receiving model.AddressHash) [20]byte {
	buf := make([]byte, 0, 128)
	put64 := func(v uint64) { b := make([]byte, 8); binary.BigEndian.PutUint64(b, v); buf = append(buf, b...) }
	put32 := func(v uint32) { b := make([]byte, 4); binary.BigEndian.PutUint32(b, v); buf = append(buf, b...) }

	put64(valueSats)
	buf = append(buf, []byte(Lokad)...)
	buf = append(buf, cfg.Version)
	buf = append(buf, power)
	if isInverted {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, tokenID[:]...)
	put32(uint32(tokenType))
	put64(uint64(sellAmountBase))
	put32(scriptPrice)
	put64(cfg.DustLimit)
	buf = append(buf, receiving.Bytes[:]...)
	buf = append(buf, cfg.FeeAddress.Bytes[:]...)
	put64(cfg.FeeDivisor)

	var out [20]byte
	copy(out[:], btcutil.Hash160(buf))
	return out
}

// P2SHHash extracts the 20-byte script hash from a standard P2SH output
// script (OP_HASH160 <20 bytes> OP_EQUAL).
func P2SHHash(outputScript []byte) ([20]byte, bool) {
	items, err := script.Parse(outputScript)
	if err != nil || len(items) != 3 {
		return [20]byte{}, false
	}
	if items[0].Op != 0xa9 /* OP_HASH160 */ || !items[1].IsData() || len(items[1].Data) != 20 || items[2].Op != 0x87 /* OP_EQUAL */ {
		return [20]byte{}, false
	}
	var out [20]byte
	copy(out[:], items[1].Data)
	return out, true
}

// Decode implements spec.md §4.3 in full: scans inputs for the first one
// whose EXCH stack both parses and whose recomputed contract hash matches
// output #1's P2SH hash. If some input has a recognized EXCH shape but
// none reproduces the hash, the first such input's offer is still
// returned with OutputIdx == nil and SellAmountToken == 0; with no
// recognized input, Decode returns nil.
//
// outputScripts carries the raw output scripts of tx in output order
// (TxClassifier has these at classification time; HistoricTx itself does
// not retain raw scripts once classified).
func Decode(
	tx model.HistoricTx,
	inputScripts [][]byte,
	outputScripts [][]byte,
	cfg Config,
	tokenID model.Hash,
	tokenType int32,
	tokenDecimals uint8,
) (*model.TradeOffer, error) {
	const fixedOutputIdx = 1
	if len(tx.Outputs) <= fixedOutputIdx || len(outputScripts) <= fixedOutputIdx {
		return nil, nil
	}

	sellAmount := tx.Outputs[fixedOutputIdx].ValueToken
	p2sh, haveP2SH := P2SHHash(outputScripts[fixedOutputIdx])

	var fallback *candidate
	var fallbackIdx int

	for i, raw := range inputScripts {
		cand, ok, err := recognizeInput(raw, cfg)
		if err != nil || !ok {
			continue // shape error or mismatch: try the next input
		}
		if fallback == nil {
			c := cand
			fallback = &c
			fallbackIdx = i
		}
		if !haveP2SH {
			continue
		}
		hash := contractHash(
			tx.Outputs[fixedOutputIdx].ValueSats, cfg, cand.power, cand.isInverted,
			tokenID, tokenType, sellAmount.Base().Int64(), cand.scriptPrice, cand.receiving,
		)
		if p2sh == hash {
			// First input satisfying both shape and hash recomputation
			// (spec.md §4.3 tie-break rule).
			k := int32(fixedOutputIdx)
			return &model.TradeOffer{
				Tx:               tx.Hash,
				OutputIdx:        &k,
				InputTx:          tx.Inputs[i].PrevTx,
				InputIdx:         int32(i),
				PricePerToken:    decodePrice(cand.scriptPrice, cand.isInverted, tokenDecimals),
				ScriptPrice:      int64(cand.scriptPrice),
				IsInverted:       cand.isInverted,
				SellAmountToken:  sellAmount,
				ReceivingAddress: cand.receiving,
			}, nil
		}
	}

	if fallback == nil {
		return nil, nil
	}
	return &model.TradeOffer{
		Tx:               tx.Hash,
		InputTx:          tx.Inputs[fallbackIdx].PrevTx,
		InputIdx:         int32(fallbackIdx),
		PricePerToken:    decodePrice(fallback.scriptPrice, fallback.isInverted, tokenDecimals),
		ScriptPrice:      int64(fallback.scriptPrice),
		IsInverted:       fallback.isInverted,
		SellAmountToken:  decimal.Zero(tokenDecimals),
		ReceivingAddress: fallback.receiving,
	}, nil
}
