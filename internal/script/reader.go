// Package script provides the minimal script-op decoding spec.md §2 calls
// ScriptReader: recognizing OP_RETURN SLP payloads, P2PKH/P2SH output
// templates, and EXCH input stacks. Grounded on the teacher's btcsuite/btcd
// family imports (internal/tx/btc_tx.go uses txscript/btcutil for template
// and address recognition); this package applies the same library to the
// BCH-family script templates spec.md §4.2/§4.3 describe.
package script

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"

	"github.com/slpdexd/indexer/internal/model"
)

// Item is one parsed push-data element or bare opcode from a script.
type Item struct {
	Op   byte
	Data []byte
}

// IsData reports whether the item carries pushed data (as opposed to a
// bare non-push opcode like OP_2).
func (i Item) IsData() bool {
	return i.Data != nil
}

// Parse tokenizes a raw script into its opcode/push-data items using
// txscript's disassembler machinery.
func Parse(raw []byte) ([]Item, error) {
	tokenizer := txscript.MakeScriptTokenizer(0, raw)
	var items []Item
	for tokenizer.Next() {
		op := tokenizer.Opcode()
		data := tokenizer.Data()
		if data != nil {
			items = append(items, Item{Op: op, Data: data})
		} else {
			items = append(items, Item{Op: op})
		}
	}
	if err := tokenizer.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// IsOpReturn reports whether the script's first opcode is OP_RETURN.
func IsOpReturn(raw []byte) bool {
	return len(raw) > 0 && raw[0] == txscript.OP_RETURN
}

// IsSLPSafeDataPush enforces the "SLP-safe" constraint (spec.md §4.2 step 2):
// every pushed datum has length in [1, 0x4e], i.e. direct pushes only, no
// OP_0/OP_1NEGATE/OP_1..OP_16 data slots.
func IsSLPSafeDataPush(item Item) bool {
	if !item.IsData() {
		return false
	}
	return len(item.Data) >= 1 && len(item.Data) <= 0x4e
}

// ClassifyOutputScript recognizes the standard P2PKH/P2SH templates and
// bare OP_RETURN outputs (mirrors
// _examples/original_source/slpdexdb_db/src/tx_history.rs's
// _process_output_script). Anything else is OutputUnknown.
func ClassifyOutputScript(raw []byte) model.OutputKind {
	items, err := Parse(raw)
	if err != nil || len(items) == 0 {
		return model.OutputKind{Tag: model.OutputUnknown}
	}
	if items[0].Op == txscript.OP_RETURN {
		return model.OutputKind{Tag: model.OutputOpReturn}
	}
	// OP_DUP OP_HASH160 <20 bytes> OP_EQUALVERIFY OP_CHECKSIG
	if len(items) == 5 &&
		items[0].Op == txscript.OP_DUP && items[1].Op == txscript.OP_HASH160 &&
		items[2].IsData() && len(items[2].Data) == 20 &&
		items[3].Op == txscript.OP_EQUALVERIFY && items[4].Op == txscript.OP_CHECKSIG {
		var a model.AddressHash
		a.Kind = model.AddrKindP2PKH
		copy(a.Bytes[:], items[2].Data)
		return model.OutputKind{Tag: model.OutputAddress, Address: a}
	}
	// OP_HASH160 <20 bytes> OP_EQUAL
	if len(items) == 3 &&
		items[0].Op == txscript.OP_HASH160 && items[1].IsData() && len(items[1].Data) == 20 &&
		items[2].Op == txscript.OP_EQUAL {
		var a model.AddressHash
		a.Kind = model.AddrKindP2SH
		copy(a.Bytes[:], items[1].Data)
		return model.OutputKind{Tag: model.OutputAddress, Address: a}
	}
	return model.OutputKind{Tag: model.OutputUnknown}
}

// ClassifyInputScript recognizes a bare OP_RETURN marker or a single
// 33-byte pubkey push (the P2PKH unlocking template, address recovered
// from the pushed pubkey) in an unlocking script (mirrors
// _process_input_script in the same source file). Anything else,
// including EXCH covenant stacks, is OutputUnknown here — EXCH
// recognition is internal/tradeoffer's job, not the classifier's.
func ClassifyInputScript(raw []byte) model.OutputKind {
	items, err := Parse(raw)
	if err != nil || len(items) == 0 {
		return model.OutputKind{Tag: model.OutputUnknown}
	}
	if items[0].Op == txscript.OP_RETURN {
		return model.OutputKind{Tag: model.OutputOpReturn}
	}
	if len(items) == 2 && items[1].IsData() && len(items[1].Data) == 33 {
		var a model.AddressHash
		a.Kind = model.AddrKindP2PKH
		copy(a.Bytes[:], btcutil.Hash160(items[1].Data))
		return model.OutputKind{Tag: model.OutputAddress, Address: a}
	}
	return model.OutputKind{Tag: model.OutputUnknown}
}
