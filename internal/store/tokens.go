package store

import (
	"database/sql"
	"fmt"
	"math/big"

	"github.com/slpdexd/indexer/internal/decimal"
	"github.com/slpdexd/indexer/internal/model"
)

// AddTokens upserts token metadata rows, leaving current_supply untouched
// on conflict (supply is kept current by the live ingestion path, not by
// re-running token discovery). Grounded on
// _examples/original_source/slpdexdb_db/src/db.rs's Db::add_tokens.
func (s *Store) AddTokens(tokens []model.Token) error {
	if len(tokens) == 0 {
		return nil
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("add tokens: begin: %w", err)
	}
	defer tx.Rollback()

	for _, t := range tokens {
		if _, err := tx.Exec(
			`INSERT INTO token (hash, decimals, timestamp, version_type, document_uri, symbol,
			   name, document_hash, initial_supply, current_supply, block_created_height)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (hash) DO UPDATE SET current_supply = current_supply`,
			t.ID.Hex(), t.Decimals, t.Timestamp, t.VersionType, nullableText(t.DocumentURI),
			nullableText(t.Symbol), nullableText(t.Name), nullableDocHash(t.DocumentHash),
			t.InitialSupply.Base().String(), t.CurrentSupply.Base().String(), t.BlockCreatedHeight,
		); err != nil {
			return fmt.Errorf("add tokens: upsert %s: %w", t.ID, err)
		}
	}

	return tx.Commit()
}

func nullableText(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullableDocHash(h *[32]byte) sql.NullString {
	if h == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: model.Hash(*h).Hex(), Valid: true}
}

// Token fetches one token row by its hash, or (_, false, nil) if absent.
// Grounded on db.rs's Db::token.
func (s *Store) Token(hash model.Hash) (model.Token, bool, error) {
	var t model.Token
	var documentURI, symbol, name, documentHash sql.NullString
	var initialSupply, currentSupply string
	err := s.conn.QueryRow(
		`SELECT decimals, timestamp, version_type, document_uri, symbol, name, document_hash,
		   initial_supply, current_supply, block_created_height
		 FROM token WHERE hash = ?`, hash.Hex(),
	).Scan(&t.Decimals, &t.Timestamp, &t.VersionType, &documentURI, &symbol, &name, &documentHash,
		&initialSupply, &currentSupply, &t.BlockCreatedHeight)
	if err == sql.ErrNoRows {
		return model.Token{}, false, nil
	}
	if err != nil {
		return model.Token{}, false, fmt.Errorf("token %s: %w", hash, err)
	}
	t.ID = hash
	if documentURI.Valid {
		t.DocumentURI = &documentURI.String
	}
	if symbol.Valid {
		t.Symbol = &symbol.String
	}
	if name.Valid {
		t.Name = &name.String
	}
	if documentHash.Valid {
		h, err := model.HashFromHex(documentHash.String)
		if err != nil {
			return model.Token{}, false, fmt.Errorf("token %s: decode document hash: %w", hash, err)
		}
		b := [32]byte(h)
		t.DocumentHash = &b
	}
	if t.InitialSupply, err = decimalFromBaseText(initialSupply, t.Decimals); err != nil {
		return model.Token{}, false, fmt.Errorf("token %s: decode initial supply: %w", hash, err)
	}
	if t.CurrentSupply, err = decimalFromBaseText(currentSupply, t.Decimals); err != nil {
		return model.Token{}, false, fmt.Errorf("token %s: decode current supply: %w", hash, err)
	}
	return t, true, nil
}

func decimalFromBaseText(s string, decimals uint8) (decimal.Amount, error) {
	base, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return decimal.Amount{}, fmt.Errorf("invalid base integer %q", s)
	}
	return decimal.New(base, decimals), nil
}
