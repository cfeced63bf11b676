package store

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/slpdexd/indexer/internal/model"
)

// addressFromText parses the "p2pkh:<hex>" / "p2sh:<hex>" text form
// produced by model.AddressHash.String, used as the address column's
// persisted representation throughout this package.
func addressFromText(s string) (model.AddressHash, error) {
	kindStr, hexStr, ok := strings.Cut(s, ":")
	if !ok {
		return model.AddressHash{}, fmt.Errorf("malformed address text %q", s)
	}
	b, err := hex.DecodeString(hexStr)
	if err != nil || len(b) != 20 {
		return model.AddressHash{}, fmt.Errorf("malformed address hash %q", s)
	}
	var a model.AddressHash
	copy(a.Bytes[:], b)
	switch kindStr {
	case "p2sh":
		a.Kind = model.AddrKindP2SH
	case "p2pkh":
		a.Kind = model.AddrKindP2PKH
	default:
		return model.AddressHash{}, fmt.Errorf("unknown address kind %q", kindStr)
	}
	return a, nil
}
