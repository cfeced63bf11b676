// Package model holds the shared value types that flow between the
// decoders, the store, and the broadcast fabric.
package model

import "encoding/hex"

// Hash is an opaque 32-byte identifier (a transaction hash, block hash, or
// token id), stored in internal byte order and displayed (Hex/String) in
// the reversed, human "block-explorer" byte order.
type Hash [32]byte

// HashFromHex parses a big-endian-displayed hex string into its reversed
// internal byte order.
func HashFromHex(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, err
	}
	if len(b) != 32 {
		return Hash{}, ErrInvalidHashLength
	}
	var h Hash
	for i := range b {
		h[i] = b[len(b)-1-i]
	}
	return h, nil
}

// Hex renders the hash in display (reversed) byte order.
func (h Hash) Hex() string {
	b := make([]byte, 32)
	for i := range h {
		b[i] = h[31-i]
	}
	return hex.EncodeToString(b)
}

func (h Hash) String() string { return h.Hex() }

// IsZero reports whether every byte is zero, as with the genesis block's
// prev_block field.
func (h Hash) IsZero() bool {
	for _, b := range h {
		if b != 0 {
			return false
		}
	}
	return true
}

// AddrKind tags an AddressHash as a pubkey-hash or script-hash output.
type AddrKind uint8

const (
	AddrKindP2PKH AddrKind = iota
	AddrKindP2SH
)

func (k AddrKind) String() string {
	if k == AddrKindP2SH {
		return "p2sh"
	}
	return "p2pkh"
}

// AddressHash is the 20-byte RIPEMD160(SHA256(pubkey-or-script)) identifier
// underlying both legacy and CashAddr address encodings.
type AddressHash struct {
	Bytes [20]byte
	Kind  AddrKind
}

func (a AddressHash) String() string {
	return a.Kind.String() + ":" + hex.EncodeToString(a.Bytes[:])
}
