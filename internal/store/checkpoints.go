package store

import (
	"database/sql"
	"fmt"

	"github.com/slpdexd/indexer/internal/model"
)

// LastUpdate returns the most recent checkpoint for subject, or (_, false,
// nil) if the resync loop has never run. Grounded on db.rs's Db::last_update.
func (s *Store) LastUpdate(subject model.Subject) (model.UpdateCheckpoint, bool, error) {
	query := `SELECT last_height, last_tx_hash, completed, timestamp FROM update_history
	          WHERE subject_type = ? AND is_confirmed = ?`
	args := []any{subject.Kind, subject.IsConfirmed}
	if subject.Hash != nil {
		query += ` AND subject_hash = ?`
		args = append(args, hexBytes(*subject.Hash))
	} else {
		query += ` AND subject_hash IS NULL`
	}
	query += ` ORDER BY timestamp DESC LIMIT 1`

	var lastHeight int32
	var lastTxHash sql.NullString
	var completed bool
	var timestamp int64
	err := s.conn.QueryRow(query, args...).Scan(&lastHeight, &lastTxHash, &completed, &timestamp)
	if err == sql.ErrNoRows {
		return model.UpdateCheckpoint{}, false, nil
	}
	if err != nil {
		return model.UpdateCheckpoint{}, false, fmt.Errorf("last update: %w", err)
	}

	cp := model.UpdateCheckpoint{Subject: subject, LastHeight: lastHeight, Completed: completed, Timestamp: timestamp}
	if lastTxHash.Valid {
		h, err := model.HashFromHex(lastTxHash.String)
		if err != nil {
			return model.UpdateCheckpoint{}, false, fmt.Errorf("last update: decode tx hash: %w", err)
		}
		cp.LastTxHash = &h
	}
	return cp, true, nil
}

func hexBytes(b []byte) string {
	h := make([]byte, len(b)*2)
	const hexDigits = "0123456789abcdef"
	for i, v := range b {
		h[i*2] = hexDigits[v>>4]
		h[i*2+1] = hexDigits[v&0xf]
	}
	return string(h)
}

// AddUpdateCheckpoint records a new resync checkpoint row. Grounded on
// db.rs's Db::add_update_history.
func (s *Store) AddUpdateCheckpoint(cp model.UpdateCheckpoint) error {
	var lastTxHash, lastTxHashBE, subjectHash sql.NullString
	if cp.LastTxHash != nil {
		lastTxHash = sql.NullString{String: cp.LastTxHash.Hex(), Valid: true}
		lastTxHashBE = lastTxHash
	}
	if cp.Subject.Hash != nil {
		subjectHash = sql.NullString{String: hexBytes(*cp.Subject.Hash), Valid: true}
	}
	_, err := s.conn.Exec(
		`INSERT INTO update_history (last_height, last_tx_hash, last_tx_hash_be, subject_type,
		   subject_hash, timestamp, completed, is_confirmed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cp.LastHeight, lastTxHash, lastTxHashBE, cp.Subject.Kind, subjectHash, cp.Timestamp,
		cp.Completed, cp.Subject.IsConfirmed,
	)
	if err != nil {
		return fmt.Errorf("add update checkpoint: %w", err)
	}
	return nil
}
