package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/slpdexd/indexer/internal/model"
)

// UtxosAddress materializes {prev_tx, vout, value_sats, value_token, token}
// for every unspent output owned by addr, joining the token row for its
// decimals. Grounded on db.rs's Db::utxos_address.
func (s *Store) UtxosAddress(addr model.AddressHash) ([]model.Utxo, error) {
	rows, err := s.conn.Query(
		`SELECT tx.hash, tx_output.idx, tx_output.value_sats, tx_output.value_token_base,
		   token.hash, token.decimals
		 FROM tx_output
		 JOIN utxo_address ON utxo_address.tx = tx_output.tx AND utxo_address.idx = tx_output.idx
		 JOIN tx ON tx.hash = tx_output.tx
		 LEFT JOIN slp_tx ON slp_tx.tx = tx.hash
		 LEFT JOIN token ON token.hash = slp_tx.token
		 WHERE utxo_address.address = ?`, addr.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("utxos address %s: %w", addr, err)
	}
	defer rows.Close()

	var out []model.Utxo
	for rows.Next() {
		var u model.Utxo
		var txHashHex, valueTokenBase string
		var tokenHashHex sql.NullString
		var decimals sql.NullInt32
		if err := rows.Scan(&txHashHex, &u.Vout, &u.ValueSats, &valueTokenBase, &tokenHashHex, &decimals); err != nil {
			return nil, fmt.Errorf("utxos address %s: scan: %w", addr, err)
		}
		if u.TxHash, err = model.HashFromHex(txHashHex); err != nil {
			return nil, fmt.Errorf("utxos address %s: decode tx hash: %w", addr, err)
		}
		dec := uint8(0)
		if decimals.Valid {
			dec = uint8(decimals.Int32)
		}
		if u.ValueToken, err = decimalFromBaseText(valueTokenBase, dec); err != nil {
			return nil, fmt.Errorf("utxos address %s: decode value: %w", addr, err)
		}
		if tokenHashHex.Valid && !u.ValueToken.IsZero() {
			th, err := model.HashFromHex(tokenHashHex.String)
			if err != nil {
				return nil, fmt.Errorf("utxos address %s: decode token hash: %w", addr, err)
			}
			u.TokenHash = &th
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// RebuildUtxoAddress deletes then re-materializes the utxo_address
// projection for addr from tx_output LEFT JOIN tx_input, keeping only
// outputs no input spends. Grounded on db.rs's Db::update_utxo_set.
func (s *Store) RebuildUtxoAddress(addr model.AddressHash) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("rebuild utxo address %s: begin: %w", addr, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM utxo_address WHERE address = ?`, addr.String()); err != nil {
		return fmt.Errorf("rebuild utxo address %s: delete: %w", addr, err)
	}
	if _, err := tx.Exec(
		`INSERT INTO utxo_address (tx, idx, address)
		 SELECT tx_output.tx, tx_output.idx, tx_output.address
		 FROM tx_output
		 LEFT JOIN tx_input ON tx_input.output_tx = tx_output.tx AND tx_input.output_idx = tx_output.idx
		 WHERE tx_input.tx IS NULL AND tx_output.address = ?`, addr.String(),
	); err != nil {
		return fmt.Errorf("rebuild utxo address %s: insert: %w", addr, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("rebuild utxo address %s: commit: %w", addr, err)
	}
	return nil
}

// RebuildUtxoTradeOffers deletes then re-materializes the
// utxo_trade_offer projection from unspent trade_offer output rows.
// Grounded on db.rs's Db::update_utxo_set_exch.
func (s *Store) RebuildUtxoTradeOffers() error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("rebuild utxo trade offers: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM utxo_trade_offer`); err != nil {
		return fmt.Errorf("rebuild utxo trade offers: delete: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO utxo_trade_offer (tx, idx)
		 SELECT trade_offer.tx, trade_offer.output_idx
		 FROM trade_offer
		 LEFT JOIN tx_input ON tx_input.output_tx = trade_offer.tx AND tx_input.output_idx = trade_offer.output_idx
		 WHERE trade_offer.output_idx IS NOT NULL AND tx_input.tx IS NULL
		 ON CONFLICT (tx, idx) DO NOTHING`,
	); err != nil {
		return fmt.Errorf("rebuild utxo trade offers: insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("rebuild utxo trade offers: commit: %w", err)
	}
	return nil
}

// RemoveUtxos retracts the given (tx, vout) pairs from both the
// address-keyed and trade-offer-keyed projections — used during live
// ingestion, where the full table scan a rebuild does would be wasteful.
// Grounded on db.rs's Db::remove_utxos.
func (s *Store) RemoveUtxos(spent []model.SpentUtxo) error {
	if len(spent) == 0 {
		return nil
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("remove utxos: begin: %w", err)
	}
	defer tx.Rollback()

	for _, u := range spent {
		if _, err := tx.Exec(`DELETE FROM utxo_address WHERE tx = ? AND idx = ?`, u.TxHash.Hex(), u.Vout); err != nil {
			return fmt.Errorf("remove utxos: delete address %s:%d: %w", u.TxHash, u.Vout, err)
		}
		if _, err := tx.Exec(`DELETE FROM utxo_trade_offer WHERE tx = ? AND idx = ?`, u.TxHash.Hex(), u.Vout); err != nil {
			return fmt.Errorf("remove utxos: delete trade offer %s:%d: %w", u.TxHash, u.Vout, err)
		}
	}
	return tx.Commit()
}

// AddUtxos inserts incremental address-keyed or trade-offer-keyed utxo
// rows. Grounded on db.rs's Db::add_utxos.
func (s *Store) AddUtxos(added []model.NewUtxo) error {
	if len(added) == 0 {
		return nil
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("add utxos: begin: %w", err)
	}
	defer tx.Rollback()

	for _, u := range added {
		switch u.Kind {
		case model.NewUtxoAddress:
			if _, err := tx.Exec(
				`INSERT INTO utxo_address (tx, idx, address) VALUES (?, ?, ?) ON CONFLICT (tx, idx) DO NOTHING`,
				u.TxHash.Hex(), u.Vout, u.Address.String(),
			); err != nil {
				return fmt.Errorf("add utxos: address %s:%d: %w", u.TxHash, u.Vout, err)
			}
		case model.NewUtxoTradeOffer:
			if _, err := tx.Exec(
				`INSERT INTO utxo_trade_offer (tx, idx) VALUES (?, ?) ON CONFLICT (tx, idx) DO NOTHING`,
				u.TxHash.Hex(), u.Vout,
			); err != nil {
				return fmt.Errorf("add utxos: trade offer %s:%d: %w", u.TxHash, u.Vout, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("add utxos: commit: %w", err)
	}
	slog.Debug("utxos added", "count", len(added))
	return nil
}
