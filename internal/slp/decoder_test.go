package slp

import (
	"testing"

	"github.com/slpdexd/indexer/internal/model"
)

type fakeTokens struct {
	token model.Token
	err   error
}

func (f fakeTokens) GetOrFetch(id model.Hash) (model.Token, error) {
	if f.err != nil {
		return model.Token{}, f.err
	}
	return f.token, nil
}

func pushData(b []byte) []byte {
	out := []byte{}
	n := len(b)
	switch {
	case n < 0x4c:
		out = append(out, byte(n))
	default:
		panic("test helper supports only direct pushes")
	}
	return append(out, b...)
}

func buildSLPScript(tokenType []byte, subtype string, tokenID [32]byte, amounts [][]byte) []byte {
	raw := []byte{0x6a}
	raw = append(raw, pushData([]byte(Lokad))...)
	raw = append(raw, pushData(tokenType)...)
	raw = append(raw, pushData([]byte(subtype))...)
	raw = append(raw, pushData(tokenID[:])...)
	for _, a := range amounts {
		raw = append(raw, pushData(a)...)
	}
	return raw
}

func u64be(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

func TestDecodeSend(t *testing.T) {
	var tokenID [32]byte
	tokenID[0] = 0xAB
	raw := buildSLPScript([]byte{0x01}, "SEND", tokenID, [][]byte{u64be(100)})

	lookup := fakeTokens{token: model.Token{Decimals: 2}}
	decoded, err := Decode(raw, lookup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decoded.Kind.IsSLP {
		t.Fatal("expected SLP kind")
	}
	if decoded.Kind.Subtype != model.SLPSubtypeSend {
		t.Errorf("expected SEND subtype, got %v", decoded.Kind.Subtype)
	}
	if len(decoded.Amounts) != 2 {
		t.Fatalf("expected 2 amounts (slot0 + 1 output), got %d", len(decoded.Amounts))
	}
	if decoded.Amounts[1].Base().Int64() != 100 {
		t.Errorf("expected base 100, got %s", decoded.Amounts[1].Base())
	}
}

func TestDecodeNotOpReturn(t *testing.T) {
	raw := []byte{0x76, 0xa9}
	if _, err := Decode(raw, fakeTokens{}); err == nil {
		t.Fatal("expected error for non-OP_RETURN script")
	}
}

func TestDecodeTooFewPushops(t *testing.T) {
	raw := []byte{0x6a}
	raw = append(raw, pushData([]byte(Lokad))...)
	if _, err := Decode(raw, fakeTokens{}); err == nil {
		t.Fatal("expected TooFewPushops error")
	}
}

func TestDecodeTooManyAmounts(t *testing.T) {
	var tokenID [32]byte
	amounts := make([][]byte, 20)
	for i := range amounts {
		amounts[i] = u64be(1)
	}
	raw := buildSLPScript([]byte{0x01}, "SEND", tokenID, amounts)
	lookup := fakeTokens{token: model.Token{Decimals: 0}}
	if _, err := Decode(raw, lookup); err == nil {
		t.Fatal("expected TooManyAmounts error")
	}
}

func TestDecodeInvalidSubtype(t *testing.T) {
	var tokenID [32]byte
	raw := buildSLPScript([]byte{0x01}, "BOGUS", tokenID, [][]byte{u64be(1)})
	if _, err := Decode(raw, fakeTokens{token: model.Token{Decimals: 0}}); err == nil {
		t.Fatal("expected InvalidSLPType error")
	}
}
