package classifier

import (
	"fmt"

	"github.com/btcsuite/btcd/wire"

	"github.com/slpdexd/indexer/internal/cashaddr"
	"github.com/slpdexd/indexer/internal/decimal"
	"github.com/slpdexd/indexer/internal/model"
	"github.com/slpdexd/indexer/internal/script"
	"github.com/slpdexd/indexer/internal/slp"
	"github.com/slpdexd/indexer/internal/tradeoffer"
)

// TokenLookup resolves token metadata by id (satisfied by internal/token's
// Registry and internal/slp's TokenLookup).
type TokenLookup interface {
	GetOrFetch(id model.Hash) (model.Token, error)
}

// Result is one classified transaction plus its optional trade offer.
type Result struct {
	Tx    model.HistoricTx
	Offer *model.TradeOffer
}

// addressKind decodes a cashaddr text form, falling back to OutputUnknown
// on any malformed address rather than failing the whole transaction
// (mirrors TxHistory::_process_address's unwrap_or(OutputType::Unknown)).
func addressKind(addr *string) model.OutputKind {
	if addr == nil {
		return model.OutputKind{Tag: model.OutputUnknown}
	}
	ah, err := cashaddr.Decode(*addr)
	if err != nil {
		return model.OutputKind{Tag: model.OutputUnknown}
	}
	return model.OutputKind{Tag: model.OutputAddress, Address: ah}
}

// reconstructOutputScript rebuilds the canonical P2PKH/P2SH output script
// from an already-decoded address, for feeding into
// tradeoffer.Decode/P2SHHash when only the entry's decoded address (not its
// raw script) is available.
func reconstructOutputScript(kind model.OutputKind) []byte {
	if kind.Tag != model.OutputAddress {
		return nil
	}
	h := kind.Address.Bytes[:]
	if kind.Address.Kind == model.AddrKindP2SH {
		out := []byte{0xa9, 0x14}
		out = append(out, h...)
		return append(out, 0x87)
	}
	out := []byte{0x76, 0xa9, 0x14}
	out = append(out, h...)
	return append(out, 0x88, 0xac)
}

// reconstructInputScript rebuilds a push-only unlocking script from an
// entry's decoded EXCH stack items, so the shared tradeoffer.recognizeInput
// tokenizer can run unmodified over both the remote-query-entry path and
// the raw-peer-tx path.
func reconstructInputScript(stack [][]byte) []byte {
	var raw []byte
	push := func(b []byte) {
		if len(b) < 0x4c {
			raw = append(raw, byte(len(b)))
		}
		raw = append(raw, b...)
	}
	for _, item := range stack {
		push(item)
	}
	return raw
}

func tokenHashFromHex(hexStr string) (model.Hash, error) {
	// TxSLPDetail.token_id is display (big-endian) hex, same convention
	// as model.HashFromHex.
	return model.HashFromHex(hexStr)
}

// FromEntries classifies a page of RemoteQueryClient result documents
// (spec.md §4.6/§4.7's "Exchange"/"Address history" loops), grounded on
// TxHistory::from_entries.
func FromEntries(entries []Entry, now int64, cfg tradeoffer.Config, tokens TokenLookup) ([]Result, error) {
	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		hash, err := model.HashFromHex(e.TxHash)
		if err != nil {
			return nil, fmt.Errorf("classify entry: %w", err)
		}

		kind := model.DefaultTxKind
		var token *model.Token
		if e.SLP != nil {
			tokenID, err := tokenHashFromHex(e.SLP.TokenIDHex)
			if err != nil {
				return nil, fmt.Errorf("classify entry %s: %w", hash, err)
			}
			subtype, ok := model.SLPSubtypeFromString(e.SLP.TransactionType)
			if !ok {
				return nil, fmt.Errorf("%w: %s", model.ErrInvalidSLPType, e.SLP.TransactionType)
			}
			kind = model.TxKind{IsSLP: true, TokenID: tokenID, TokenType: e.SLP.VersionType, Subtype: subtype}
			t, err := tokens.GetOrFetch(tokenID)
			if err != nil {
				return nil, err
			}
			token = &t
		}

		decimals := uint8(0)
		if token != nil {
			decimals = token.Decimals
		}

		inputs := make([]model.TxInput, len(e.Inputs))
		inputScripts := make([][]byte, len(e.Inputs))
		for i, in := range e.Inputs {
			prevHash, err := model.HashFromHex(in.PrevTxHash)
			if err != nil {
				return nil, fmt.Errorf("classify entry %s input %d: %w", hash, i, err)
			}
			ik := model.OutputKind{Tag: model.OutputUnknown}
			if in.IsOpReturn {
				ik = model.OutputKind{Tag: model.OutputOpReturn}
			} else if in.Address != nil {
				ik = addressKind(in.Address)
			}
			inputs[i] = model.TxInput{PrevTx: prevHash, PrevVout: in.PrevVout, Output: ik}
			inputScripts[i] = reconstructInputScript(in.Stack)
		}

		outputs := make([]model.TxOutput, len(e.Outputs))
		outputScripts := make([][]byte, len(e.Outputs))
		for i, out := range e.Outputs {
			ok := model.OutputKind{Tag: model.OutputUnknown}
			if out.IsOpReturn {
				ok = model.OutputKind{Tag: model.OutputOpReturn}
			} else if out.Address != nil {
				ok = addressKind(out.Address)
			}
			valueToken := decimal.Zero(decimals)
			if e.SLP != nil && i > 0 && i-1 < len(e.SLP.OutputAmounts) {
				if amt, err := decimal.FromText(e.SLP.OutputAmounts[i-1], decimals); err == nil {
					valueToken = amt
				}
			}
			outputs[i] = model.TxOutput{ValueSats: out.ValueSats, ValueToken: valueToken, Output: ok}
			outputScripts[i] = reconstructOutputScript(ok)
		}

		htx := model.HistoricTx{
			Hash:      hash,
			Timestamp: now,
			Kind:      kind,
			Inputs:    inputs,
			Outputs:   outputs,
		}
		if e.Blk != nil {
			h := e.Blk.Height
			htx.Height = &h
			htx.Timestamp = e.Blk.Timestamp
		}

		var offer *model.TradeOffer
		if kind.IsSLP {
			offer, err = tradeoffer.Decode(htx, inputScripts, outputScripts, cfg, kind.TokenID, kind.TokenType, decimals)
			if err != nil {
				return nil, fmt.Errorf("classify entry %s trade offer: %w", hash, err)
			}
		}

		results = append(results, Result{Tx: htx, Offer: offer})
	}
	return results, nil
}

// FromTxs classifies raw peer transactions (the live-ingestion path,
// grounded on TxHistory::from_txs), deriving SLP kind/amounts directly
// from output #0's OP_RETURN script via internal/slp, and recognizing
// output/input script templates via internal/script.
//
// Per from_txs's behavior, any SLP amount slots beyond the actual output
// count are synthesized as Burned outputs (value_satoshis = 0) so the
// declared token supply is still accounted for even though the chain
// itself dropped those outputs.
func FromTxs(txs []*wire.MsgTx, rawScripts func(tx *wire.MsgTx) (inputScripts, outputScripts [][]byte), now int64, tokens slp.TokenLookup, cfg tradeoffer.Config) ([]Result, error) {
	results := make([]Result, 0, len(txs))
	for _, tx := range txs {
		hash := model.Hash(tx.TxHash())

		inScripts, outScripts := rawScripts(tx)

		kind := model.DefaultTxKind
		var decoded *slp.Decoded
		var decimals uint8
		if len(outScripts) > 0 {
			if d, err := slp.Decode(outScripts[0], tokens); err == nil {
				decoded = &d
				kind = model.TxKind{IsSLP: true, TokenID: decoded.Kind.TokenID, TokenType: decoded.Kind.TokenType, Subtype: decoded.Kind.Subtype}
				if t, err := tokens.GetOrFetch(decoded.Kind.TokenID); err == nil {
					decimals = t.Decimals
				}
			}
		}

		inputs := make([]model.TxInput, len(tx.TxIn))
		for i, in := range tx.TxIn {
			inputs[i] = model.TxInput{
				PrevTx:   model.Hash(in.PreviousOutPoint.Hash),
				PrevVout: int32(in.PreviousOutPoint.Index),
				Output:   script.ClassifyInputScript(in.SignatureScript),
			}
		}

		outputs := make([]model.TxOutput, len(tx.TxOut))
		for i, out := range tx.TxOut {
			valueToken := decimal.Zero(decimals)
			if decoded != nil && i < len(decoded.Amounts) {
				valueToken = decoded.Amounts[i]
			}
			outputs[i] = model.TxOutput{
				ValueSats:  uint64(out.Value),
				ValueToken: valueToken,
				Output:     script.ClassifyOutputScript(out.PkScript),
			}
		}
		// Burned-output synthesis: declared amounts beyond the real
		// output count still carry token supply (from_txs's .chain()
		// over slp_amounts.skip(len(outputs))).
		if decoded != nil {
			for i := len(tx.TxOut); i < len(decoded.Amounts); i++ {
				outputs = append(outputs, model.TxOutput{
					ValueSats:  0,
					ValueToken: decoded.Amounts[i],
					Output:     model.OutputKind{Tag: model.OutputBurned},
				})
			}
		}

		htx := model.HistoricTx{Hash: hash, Timestamp: now, Kind: kind, Inputs: inputs, Outputs: outputs}

		var offer *model.TradeOffer
		var err error
		if kind.IsSLP {
			offer, err = tradeoffer.Decode(htx, inScripts, outScripts, cfg, kind.TokenID, kind.TokenType, decimals)
			if err != nil {
				return nil, fmt.Errorf("classify tx %s trade offer: %w", hash, err)
			}
		}

		results = append(results, Result{Tx: htx, Offer: offer})
	}
	return results, nil
}
