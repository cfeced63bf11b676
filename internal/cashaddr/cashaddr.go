// Package cashaddr decodes and encodes the BCH-family "CashAddr" address
// format used to build upstream query filters (spec.md §4.6 Address
// filter) and to render websocket session addresses (spec.md §6.4).
//
// No example repo carries a CashAddr codec (the teacher only handles BTC
// legacy/bech32 addresses); this implements the public, standardized
// CashAddr checksum algorithm directly, the way the teacher implements its
// own base58check/bech32 address encoders by hand in internal/wallet.
package cashaddr

import (
	"fmt"
	"strings"

	"github.com/slpdexd/indexer/internal/model"
)

const charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

var charsetRev = func() [128]int8 {
	var rev [128]int8
	for i := range rev {
		rev[i] = -1
	}
	for i, c := range charset {
		rev[c] = int8(i)
	}
	return rev
}()

const defaultPrefix = "bitcoincash"

// Decode parses a CashAddr string (with or without the "bitcoincash:"
// prefix) into its 20-byte hash and kind tag.
func Decode(addr string) (model.AddressHash, error) {
	prefix := defaultPrefix
	body := addr
	if idx := strings.IndexByte(addr, ':'); idx >= 0 {
		prefix = strings.ToLower(addr[:idx])
		body = addr[idx+1:]
	}
	body = strings.ToLower(body)

	values := make([]byte, len(body))
	for i, c := range body {
		if c > 127 || charsetRev[c] == -1 {
			return model.AddressHash{}, fmt.Errorf("cashaddr: invalid character %q", c)
		}
		values[i] = byte(charsetRev[c])
	}
	if !verifyChecksum(prefix, values) {
		return model.AddressHash{}, fmt.Errorf("cashaddr: checksum mismatch")
	}
	payload5 := values[:len(values)-8]
	data, err := convertBits(payload5, 5, 8, false)
	if err != nil {
		return model.AddressHash{}, fmt.Errorf("cashaddr: %w", err)
	}
	if len(data) < 21 {
		return model.AddressHash{}, fmt.Errorf("cashaddr: payload too short")
	}
	versionByte := data[0]
	hashBytes := data[1:]
	if len(hashBytes) != 20 {
		return model.AddressHash{}, fmt.Errorf("cashaddr: unsupported hash size %d", len(hashBytes))
	}
	kind := model.AddrKindP2PKH
	if (versionByte>>3)&0x0f == 1 {
		kind = model.AddrKindP2SH
	}
	var ah model.AddressHash
	copy(ah.Bytes[:], hashBytes)
	ah.Kind = kind
	return ah, nil
}

// Encode renders an AddressHash as a CashAddr string under the given
// prefix (typically "bitcoincash" or "simpleledger").
func Encode(prefix string, ah model.AddressHash) string {
	versionByte := byte(0)
	if ah.Kind == model.AddrKindP2SH {
		versionByte = 1 << 3
	}
	payload := append([]byte{versionByte}, ah.Bytes[:]...)
	data5, _ := convertBits(payload, 8, 5, true)
	checksum := checksumValues(prefix, data5)
	all := append(data5, checksum...)
	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteByte(':')
	for _, v := range all {
		sb.WriteByte(charset[v])
	}
	return sb.String()
}

func convertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	acc := uint32(0)
	bits := uint(0)
	var ret []byte
	maxv := uint32(1<<toBits) - 1
	for _, value := range data {
		acc = (acc << fromBits) | uint32(value)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			ret = append(ret, byte((acc>>bits)&maxv))
		}
	}
	if pad {
		if bits > 0 {
			ret = append(ret, byte((acc<<(toBits-bits))&maxv))
		}
	} else if bits >= fromBits || ((acc<<(toBits-bits))&maxv) != 0 {
		return nil, fmt.Errorf("cashaddr: invalid padding")
	}
	return ret, nil
}

func prefixExpand(prefix string) []byte {
	ret := make([]byte, len(prefix)+1)
	for i := 0; i < len(prefix); i++ {
		ret[i] = prefix[i] & 0x1f
	}
	ret[len(prefix)] = 0
	return ret
}

func polymod(values []byte) uint64 {
	c := uint64(1)
	for _, d := range values {
		c0 := byte(c >> 35)
		c = ((c & 0x07ffffffff) << 5) ^ uint64(d)
		if c0&0x01 != 0 {
			c ^= 0x98f2bc8e61
		}
		if c0&0x02 != 0 {
			c ^= 0x79b76d99e2
		}
		if c0&0x04 != 0 {
			c ^= 0xf33e5fb3c4
		}
		if c0&0x08 != 0 {
			c ^= 0xae2eabe2a8
		}
		if c0&0x10 != 0 {
			c ^= 0x1e4f43e470
		}
	}
	return c ^ 1
}

func checksumValues(prefix string, data5 []byte) []byte {
	combined := append(prefixExpand(prefix), data5...)
	combined = append(combined, make([]byte, 8)...)
	mod := polymod(combined)
	ret := make([]byte, 8)
	for i := 0; i < 8; i++ {
		ret[i] = byte((mod >> uint(5*(7-i))) & 0x1f)
	}
	return ret
}

func verifyChecksum(prefix string, values []byte) bool {
	combined := append(prefixExpand(prefix), values...)
	return polymod(combined) == 0
}
