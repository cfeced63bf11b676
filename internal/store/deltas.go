package store

import (
	"database/sql"
	"fmt"

	"github.com/slpdexd/indexer/internal/decimal"
	"github.com/slpdexd/indexer/internal/model"
)

// AddressTxDeltas computes, for every tx touching addr, (Σ outputs where
// addr) − (Σ inputs where addr) in both satoshis and token base, grouped
// by token; the token with a nonzero delta (if any) determines
// TokenHash. Grounded on db.rs's Db::address_tx_deltas, adapted from two
// raw SQL aggregate queries to one GROUP BY per side since SQLite's driver
// here favors named queries over the positional bind helpers diesel used.
func (s *Store) AddressTxDeltas(addr model.AddressHash) ([]model.TxDelta, error) {
	type side struct {
		sats   int64
		token  string
		tokenH sql.NullString
		dec    sql.NullInt32
		ts     int64
	}
	collect := func(query string) (map[string]side, error) {
		rows, err := s.conn.Query(query, addr.String())
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		out := make(map[string]side)
		for rows.Next() {
			var hashHex string
			var sd side
			if err := rows.Scan(&hashHex, &sd.ts, &sd.sats, &sd.token, &sd.tokenH, &sd.dec); err != nil {
				return nil, err
			}
			out[hashHex] = sd
		}
		return out, rows.Err()
	}

	inputs, err := collect(`
		SELECT tx.hash, tx.timestamp,
		       COALESCE(SUM(prev_out.value_sats), 0),
		       COALESCE(SUM(CAST(prev_out.value_token_base AS INTEGER)), 0),
		       token.hash, token.decimals
		FROM tx
		LEFT JOIN slp_tx ON slp_tx.tx = tx.hash
		LEFT JOIN token ON token.hash = slp_tx.token
		JOIN tx_input ON tx_input.tx = tx.hash AND tx_input.address = ?
		LEFT JOIN tx_output prev_out ON prev_out.tx = tx_input.output_tx AND prev_out.idx = tx_input.output_idx
		GROUP BY tx.hash`)
	if err != nil {
		return nil, fmt.Errorf("address tx deltas %s: input query: %w", addr, err)
	}
	outputs, err := collect(`
		SELECT tx.hash, tx.timestamp,
		       COALESCE(SUM(tx_output.value_sats), 0),
		       COALESCE(SUM(CAST(tx_output.value_token_base AS INTEGER)), 0),
		       token.hash, token.decimals
		FROM tx
		LEFT JOIN slp_tx ON slp_tx.tx = tx.hash
		LEFT JOIN token ON token.hash = slp_tx.token
		JOIN tx_output ON tx_output.tx = tx.hash AND tx_output.address = ?
		GROUP BY tx.hash`)
	if err != nil {
		return nil, fmt.Errorf("address tx deltas %s: output query: %w", addr, err)
	}

	seen := make(map[string]struct{}, len(inputs)+len(outputs))
	for h := range inputs {
		seen[h] = struct{}{}
	}
	for h := range outputs {
		seen[h] = struct{}{}
	}

	var out []model.TxDelta
	for hashHex := range seen {
		in, hasIn := inputs[hashHex]
		op, hasOut := outputs[hashHex]

		dec := uint8(0)
		var tokenHash sql.NullString
		var timestamp int64
		if hasOut {
			if op.dec.Valid {
				dec = uint8(op.dec.Int32)
			}
			tokenHash = op.tokenH
			timestamp = op.ts
		} else if hasIn {
			if in.dec.Valid {
				dec = uint8(in.dec.Int32)
			}
			tokenHash = in.tokenH
			timestamp = in.ts
		}

		inToken := decimal.Zero(dec)
		var inSats int64
		if hasIn {
			inSats = in.sats
			if a, err := decimalFromBaseText(in.token, dec); err == nil {
				inToken = a
			}
		}
		outToken := decimal.Zero(dec)
		var outSats int64
		if hasOut {
			outSats = op.sats
			if a, err := decimalFromBaseText(op.token, dec); err == nil {
				outToken = a
			}
		}

		deltaToken, err := outToken.Sub(inToken)
		if err != nil {
			return nil, fmt.Errorf("address tx deltas %s: %w", addr, err)
		}

		hash, err := model.HashFromHex(hashHex)
		if err != nil {
			return nil, fmt.Errorf("address tx deltas %s: decode tx hash: %w", addr, err)
		}

		delta := model.TxDelta{
			TxHash:        hash,
			Timestamp:     timestamp,
			DeltaSatoshis: outSats - inSats,
			DeltaToken:    deltaToken,
		}
		if tokenHash.Valid && !deltaToken.IsZero() {
			th, err := model.HashFromHex(tokenHash.String)
			if err != nil {
				return nil, fmt.Errorf("address tx deltas %s: decode token hash: %w", addr, err)
			}
			delta.TokenHash = &th
		}
		out = append(out, delta)
	}
	return out, nil
}

// TxOutputs fetches one specific output row per (tx, vout) pair, used by
// the Address-TxDelta broadcaster to look up the previous output a
// newly-seen input spends (spec.md §4.9).
func (s *Store) TxOutputs(refs []model.SpentUtxo) (map[model.SpentUtxo]model.TxOutput, error) {
	out := make(map[model.SpentUtxo]model.TxOutput, len(refs))
	stmt, err := s.conn.Prepare(
		`SELECT value_sats, value_token_base, address, output_type FROM tx_output WHERE tx = ? AND idx = ?`)
	if err != nil {
		return nil, fmt.Errorf("tx outputs: prepare: %w", err)
	}
	defer stmt.Close()

	for _, ref := range refs {
		var valueSats uint64
		var valueTokenBase string
		var address sql.NullString
		var outputType string
		err := stmt.QueryRow(ref.TxHash.Hex(), ref.Vout).Scan(&valueSats, &valueTokenBase, &address, &outputType)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("tx outputs %s:%d: %w", ref.TxHash, ref.Vout, err)
		}
		kind := model.OutputKind{Tag: outputKindFromText(outputType)}
		if address.Valid {
			if a, err := addressFromText(address.String); err == nil {
				kind.Address = a
			}
		}
		amount, err := decimalFromBaseText(valueTokenBase, 0)
		if err != nil {
			return nil, fmt.Errorf("tx outputs %s:%d: decode value: %w", ref.TxHash, ref.Vout, err)
		}
		out[ref] = model.TxOutput{ValueSats: valueSats, ValueToken: amount, Output: kind}
	}
	return out, nil
}

func outputKindFromText(s string) model.OutputKindTag {
	switch s {
	case "op_return":
		return model.OutputOpReturn
	case "address":
		return model.OutputAddress
	case "burned":
		return model.OutputBurned
	default:
		return model.OutputUnknown
	}
}
