package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/slpdexd/indexer/internal/model"
)

// AddHeaders computes each header's height by chaining prev_block to the
// heights already present among the ten most recent tips (or to the
// embedded genesis header on an empty store), then inserts every header in
// topological order. Grounded on
// _examples/original_source/slpdexdb_db/src/db.rs's Db::add_headers.
func (s *Store) AddHeaders(headers []model.BlockHeader) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("add headers: begin: %w", err)
	}
	defer tx.Rollback()

	heights := make(map[model.Hash]int32)
	rows, err := tx.Query(`SELECT hash, height FROM blocks ORDER BY height DESC LIMIT 10`)
	if err != nil {
		return fmt.Errorf("add headers: load tips: %w", err)
	}
	for rows.Next() {
		var hashHex string
		var height int32
		if err := rows.Scan(&hashHex, &height); err != nil {
			rows.Close()
			return fmt.Errorf("add headers: scan tip: %w", err)
		}
		h, err := model.HashFromHex(hashHex)
		if err != nil {
			rows.Close()
			return fmt.Errorf("add headers: decode tip hash: %w", err)
		}
		heights[h] = height
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("add headers: iterate tips: %w", err)
	}
	rows.Close()

	if len(heights) == 0 {
		if err := insertBlock(tx, model.Genesis, 0); err != nil {
			return fmt.Errorf("add headers: insert genesis: %w", err)
		}
		heights[model.Genesis.Hash()] = 0
	}

	remaining := make(map[int]model.BlockHeader, len(headers))
	for i, h := range headers {
		remaining[i] = h
	}
	ordered := make([]model.BlockHeader, 0, len(headers))
	for len(remaining) > 0 {
		progressed := false
		for i, header := range remaining {
			var height int32
			if header.IsGenesis() {
				height = 0
			} else if h, ok := heights[header.Prev]; ok {
				height = h + 1
			} else {
				continue
			}
			heights[header.Hash()] = height
			ordered = append(ordered, header)
			delete(remaining, i)
			progressed = true
		}
		if !progressed {
			return fmt.Errorf("add headers: %d header(s) do not chain to any known tip", len(remaining))
		}
	}

	for _, header := range ordered {
		if err := insertBlock(tx, header, heights[header.Hash()]); err != nil {
			return fmt.Errorf("add headers: insert %s: %w", header.Hash(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("add headers: commit: %w", err)
	}
	slog.Info("headers added", "count", len(headers))
	return nil
}

func insertBlock(tx *sql.Tx, header model.BlockHeader, height int32) error {
	_, err := tx.Exec(
		`INSERT INTO blocks (hash, height, version, prev_block, merkle_root, timestamp, bits, nonce)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (hash) DO NOTHING`,
		header.Hash().Hex(), height, header.Version, header.Prev.Hex(), header.MerkleRoot.Hex(),
		header.Timestamp, header.Bits, header.Nonce,
	)
	return err
}

// BlockTip is one row of the header-tip projection.
type BlockTip struct {
	Header model.BlockHeader
	Height int32
}

// HeaderTips returns the n newest headers by height, descending.
func (s *Store) HeaderTips(n int) ([]BlockTip, error) {
	rows, err := s.conn.Query(
		`SELECT version, prev_block, merkle_root, timestamp, bits, nonce, height
		 FROM blocks ORDER BY height DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("header tips: %w", err)
	}
	defer rows.Close()

	var tips []BlockTip
	for rows.Next() {
		var t BlockTip
		var prevHex, merkleHex string
		if err := rows.Scan(&t.Header.Version, &prevHex, &merkleHex, &t.Header.Timestamp,
			&t.Header.Bits, &t.Header.Nonce, &t.Height); err != nil {
			return nil, fmt.Errorf("header tips: scan: %w", err)
		}
		if t.Header.Prev, err = model.HashFromHex(prevHex); err != nil {
			return nil, fmt.Errorf("header tips: decode prev: %w", err)
		}
		if t.Header.MerkleRoot, err = model.HashFromHex(merkleHex); err != nil {
			return nil, fmt.Errorf("header tips: decode merkle root: %w", err)
		}
		tips = append(tips, t)
	}
	return tips, rows.Err()
}

// HeaderTip returns the single newest header, or (_, false, nil) on an
// empty store.
func (s *Store) HeaderTip() (BlockTip, bool, error) {
	tips, err := s.HeaderTips(1)
	if err != nil {
		return BlockTip{}, false, err
	}
	if len(tips) == 0 {
		return BlockTip{}, false, nil
	}
	return tips[0], true, nil
}
