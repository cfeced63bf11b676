package cashaddr

import (
	"testing"

	"github.com/slpdexd/indexer/internal/model"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var ah model.AddressHash
	for i := range ah.Bytes {
		ah.Bytes[i] = byte(i + 1)
	}
	ah.Kind = model.AddrKindP2PKH

	encoded := Encode("bitcoincash", ah)
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded != ah {
		t.Errorf("round trip mismatch: got %+v want %+v", decoded, ah)
	}
}

func TestEncodeDecodeP2SH(t *testing.T) {
	var ah model.AddressHash
	for i := range ah.Bytes {
		ah.Bytes[i] = byte(255 - i)
	}
	ah.Kind = model.AddrKindP2SH

	encoded := Encode("bitcoincash", ah)
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Kind != model.AddrKindP2SH {
		t.Errorf("expected P2SH kind, got %v", decoded.Kind)
	}
}

func TestDecodeRejectsBadChecksum(t *testing.T) {
	var ah model.AddressHash
	encoded := Encode("bitcoincash", ah)
	tampered := encoded[:len(encoded)-1] + "x"
	if _, err := Decode(tampered); err == nil {
		t.Fatal("expected checksum error")
	}
}
