package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slpdexd/indexer/internal/classifier"
	"github.com/slpdexd/indexer/internal/decimal"
	"github.com/slpdexd/indexer/internal/model"
)

const priceFractionalDigits = 26

// priceToText renders a price_per_token rational at 26 fractional digits,
// stripping trailing zeros (spec.md §4.8's "prices are stored as
// fixed-precision decimals with 26 fractional digits ... rounds at the
// last emitted digit; trailing zeros stripped").
func priceToText(r *decimal.Rational) string {
	s := r.Rat().FloatString(priceFractionalDigits)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	if s == "" || s == "-" {
		s = "0"
	}
	return s
}

func outputTypeText(k model.OutputKindTag) string {
	switch k {
	case model.OutputOpReturn:
		return "op_return"
	case model.OutputAddress:
		return "address"
	case model.OutputBurned:
		return "burned"
	default:
		return "unknown"
	}
}

func addressText(k model.OutputKind) sql.NullString {
	if a := k.AddressOf(); a != nil {
		return sql.NullString{String: a.String(), Valid: true}
	}
	return sql.NullString{}
}

// AddTxHistory upserts a classified batch — txs, SLP rows, outputs, inputs,
// and any trade offers — in a single transaction. Grounded on
// _examples/original_source/slpdexdb_db/src/db.rs's Db::add_tx_history.
func (s *Store) AddTxHistory(results []classifier.Result) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("add tx history: begin: %w", err)
	}
	defer tx.Rollback()

	for _, r := range results {
		txType := "default"
		if r.Tx.Kind.IsSLP {
			txType = "slp"
		}
		var height sql.NullInt32
		if r.Tx.Height != nil {
			height = sql.NullInt32{Int32: *r.Tx.Height, Valid: true}
		}
		if _, err := tx.Exec(
			`INSERT INTO tx (hash, height, timestamp, tx_type) VALUES (?, ?, ?, ?)
			 ON CONFLICT (hash) DO UPDATE SET height = excluded.height,
			   tx_type = excluded.tx_type, timestamp = excluded.timestamp`,
			r.Tx.Hash.Hex(), height, r.Tx.Timestamp, txType,
		); err != nil {
			return fmt.Errorf("add tx history: upsert tx %s: %w", r.Tx.Hash, err)
		}

		if r.Tx.Kind.IsSLP {
			if _, err := tx.Exec(
				`INSERT INTO slp_tx (tx, token, version, slp_type) VALUES (?, ?, ?, ?)
				 ON CONFLICT (tx) DO NOTHING`,
				r.Tx.Hash.Hex(), r.Tx.Kind.TokenID.Hex(), r.Tx.Kind.TokenType, r.Tx.Kind.Subtype.String(),
			); err != nil {
				return fmt.Errorf("add tx history: insert slp_tx %s: %w", r.Tx.Hash, err)
			}
		}

		for idx, out := range r.Tx.Outputs {
			if _, err := tx.Exec(
				`INSERT INTO tx_output (tx, idx, value_sats, value_token_base, address, output_type)
				 VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT (tx, idx) DO NOTHING`,
				r.Tx.Hash.Hex(), idx, out.ValueSats, out.ValueToken.Base().String(),
				addressText(out.Output), outputTypeText(out.Output.Tag),
			); err != nil {
				return fmt.Errorf("add tx history: insert output %s:%d: %w", r.Tx.Hash, idx, err)
			}
		}

		for idx, in := range r.Tx.Inputs {
			if _, err := tx.Exec(
				`INSERT INTO tx_input (tx, idx, output_tx, output_idx, address)
				 VALUES (?, ?, ?, ?, ?) ON CONFLICT (tx, idx) DO NOTHING`,
				r.Tx.Hash.Hex(), idx, in.PrevTx.Hex(), in.PrevVout, addressText(in.Output),
			); err != nil {
				return fmt.Errorf("add tx history: insert input %s:%d: %w", r.Tx.Hash, idx, err)
			}
		}

		if r.Offer != nil {
			o := r.Offer
			var outputIdx sql.NullInt32
			if o.OutputIdx != nil {
				outputIdx = sql.NullInt32{Int32: *o.OutputIdx, Valid: true}
			}
			if _, err := tx.Exec(
				`INSERT INTO trade_offer (tx, output_idx, input_tx, input_idx, price_per_token,
				   script_price, is_inverted, sell_amount_token_base, receiving_address)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT (tx, input_idx) DO NOTHING`,
				o.Tx.Hex(), outputIdx, o.InputTx.Hex(), o.InputIdx, priceToText(o.PricePerToken),
				o.ScriptPrice, o.IsInverted, o.SellAmountToken.Base().String(), o.ReceivingAddress.String(),
			); err != nil {
				return fmt.Errorf("add tx history: insert trade offer %s: %w", o.Tx, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("add tx history: commit: %w", err)
	}
	slog.Info("tx history added", "count", len(results))
	return nil
}
