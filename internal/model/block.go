package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
)

// BlockHeader mirrors the 80-byte Bitcoin-family block header, grounded on
// _examples/original_source/slpdexdb_base/src/block.rs.
type BlockHeader struct {
	Version    int32
	Prev       Hash
	MerkleRoot Hash
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32
}

// Genesis is the embedded anchor header; every height is derived by
// chaining Prev back to this header's hash.
var Genesis = BlockHeader{
	Version:    1,
	Prev:       Hash{},
	MerkleRoot: mustHash("4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"),
	Timestamp:  1231006505,
	Bits:       0x1d00ffff,
	Nonce:      2083236893,
}

func mustHash(hexStr string) Hash {
	h, err := HashFromHex(hexStr)
	if err != nil {
		panic(err)
	}
	return h
}

// ReadBlockHeader decodes the fixed 80-byte little-endian serialization.
func ReadBlockHeader(r io.Reader) (BlockHeader, error) {
	buf := make([]byte, 80)
	if _, err := io.ReadFull(r, buf); err != nil {
		return BlockHeader{}, fmt.Errorf("%w: %v", ErrTruncatedPayload, err)
	}
	var h BlockHeader
	h.Version = int32(binary.LittleEndian.Uint32(buf[0:4]))
	copy(h.Prev[:], buf[4:36])
	copy(h.MerkleRoot[:], buf[36:68])
	h.Timestamp = binary.LittleEndian.Uint32(buf[68:72])
	h.Bits = binary.LittleEndian.Uint32(buf[72:76])
	h.Nonce = binary.LittleEndian.Uint32(buf[76:80])
	return h, nil
}

// Serialize writes the canonical 80-byte little-endian form.
func (h BlockHeader) Serialize() []byte {
	buf := make([]byte, 80)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.Version))
	copy(buf[4:36], h.Prev[:])
	copy(buf[36:68], h.MerkleRoot[:])
	binary.LittleEndian.PutUint32(buf[68:72], h.Timestamp)
	binary.LittleEndian.PutUint32(buf[72:76], h.Bits)
	binary.LittleEndian.PutUint32(buf[76:80], h.Nonce)
	return buf
}

// Hash returns the double-SHA-256 of the serialized header, in internal
// (non-reversed) byte order — callers needing display order use Hash.Hex().
func (h BlockHeader) Hash() Hash {
	ser := h.Serialize()
	first := sha256.Sum256(ser)
	second := sha256.Sum256(first[:])
	return Hash(second)
}

// IsGenesis reports whether this header's Prev is the all-zero hash.
func (h BlockHeader) IsGenesis() bool {
	return h.Prev.IsZero()
}

func (h BlockHeader) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "BlockHeader: %s\n", h.Hash())
	fmt.Fprintf(&b, " version:     %d\n", h.Version)
	fmt.Fprintf(&b, " prev_block:  %s\n", h.Prev)
	fmt.Fprintf(&b, " merkle_root: %s\n", h.MerkleRoot)
	fmt.Fprintf(&b, " timestamp:   %d\n", h.Timestamp)
	fmt.Fprintf(&b, " bits:        %x\n", h.Bits)
	fmt.Fprintf(&b, " nonce:       %d\n", h.Nonce)
	return b.String()
}
