package store

import (
	"fmt"

	"github.com/slpdexd/indexer/internal/model"
)

// SetAddressActive inserts or removes a row in the active-address
// projection (the set of addresses with a live websocket subscriber).
// Grounded on db.rs's Db::set_address_active.
func (s *Store) SetAddressActive(addr model.AddressHash, active bool) error {
	if active {
		_, err := s.conn.Exec(
			`INSERT INTO active_address (address) VALUES (?) ON CONFLICT DO NOTHING`, addr.String())
		if err != nil {
			return fmt.Errorf("set address active %s: %w", addr, err)
		}
		return nil
	}
	if _, err := s.conn.Exec(`DELETE FROM active_address WHERE address = ?`, addr.String()); err != nil {
		return fmt.Errorf("set address inactive %s: %w", addr, err)
	}
	return nil
}

// IsAddressActive reports whether addr currently has a subscriber.
func (s *Store) IsAddressActive(addr model.AddressHash) (bool, error) {
	var count int
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM active_address WHERE address = ?`, addr.String()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("is address active %s: %w", addr, err)
	}
	return count > 0, nil
}

// ActiveAddresses returns every address currently marked active, used by
// ResyncEngine.ResyncAddress to iterate subscribed addresses.
func (s *Store) ActiveAddresses() ([]model.AddressHash, error) {
	rows, err := s.conn.Query(`SELECT address FROM active_address`)
	if err != nil {
		return nil, fmt.Errorf("active addresses: %w", err)
	}
	defer rows.Close()

	var out []model.AddressHash
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("active addresses: scan: %w", err)
		}
		addr, err := addressFromText(text)
		if err != nil {
			return nil, fmt.Errorf("active addresses: decode %q: %w", text, err)
		}
		out = append(out, addr)
	}
	return out, rows.Err()
}
