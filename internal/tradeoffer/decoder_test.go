package tradeoffer

import (
	"testing"

	"github.com/slpdexd/indexer/internal/decimal"
	"github.com/slpdexd/indexer/internal/model"
)

func TestDecodePriceNotInverted(t *testing.T) {
	p := decodePrice(10000, false, 2)
	want := decimal.RationalFromInt(1_000_000)
	if p.Cmp(want) != 0 {
		t.Errorf("got %s, want %s", p, want)
	}
}

func TestDecodePriceInverted(t *testing.T) {
	p := decodePrice(5, true, 3)
	want := decimal.NewRational(1000, 5) // 200
	if p.Cmp(want) != 0 {
		t.Errorf("got %s, want %s", p, want)
	}
}

func pushBytes(b []byte) []byte {
	return append([]byte{byte(len(b))}, b...)
}

func buildExchUnlockingScript(power []byte, price []byte, addr [20]byte) []byte {
	var raw []byte
	raw = append(raw, pushBytes([]byte(Lokad))...)
	raw = append(raw, 0x52) // OP_2
	raw = append(raw, pushBytes(power)...)
	raw = append(raw, pushBytes(price)...)
	raw = append(raw, pushBytes(addr[:])...)
	return raw
}

func TestRecognizeInputShape(t *testing.T) {
	cfg := Config{Version: 2}
	var addr [20]byte
	addr[0] = 0x42
	raw := buildExchUnlockingScript([]byte{1}, []byte{0, 0, 0x27, 0x10}, addr)
	cand, ok, err := recognizeInput(raw, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected shape recognition to succeed")
	}
	if cand.power != 1 {
		t.Errorf("expected power 1, got %d", cand.power)
	}
	if cand.isInverted {
		t.Error("expected not inverted")
	}
	if cand.scriptPrice != 10000 {
		t.Errorf("expected scriptPrice 10000, got %d", cand.scriptPrice)
	}
}

func TestDecodeNoExchInputsReturnsNil(t *testing.T) {
	tx := model.HistoricTx{
		Inputs:  []model.TxInput{{}},
		Outputs: []model.TxOutput{{}, {}},
	}
	offer, err := Decode(tx, [][]byte{{0x51}}, [][]byte{nil, nil}, Config{}, model.Hash{}, 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if offer != nil {
		t.Fatal("expected nil offer when no input matches EXCH shape")
	}
}

func TestDecodeFallbackWhenHashMismatch(t *testing.T) {
	cfg := Config{Version: 2}
	var addr [20]byte
	raw := buildExchUnlockingScript([]byte{1}, []byte{0, 0, 0x27, 0x10}, addr)
	tx := model.HistoricTx{
		Inputs:  []model.TxInput{{PrevTx: model.Hash{1}}},
		Outputs: []model.TxOutput{{}, {ValueToken: decimal.Zero(0)}},
	}
	// output script is not a matching P2SH, so match fails and fallback is used.
	offer, err := Decode(tx, [][]byte{raw}, [][]byte{nil, {0xa9, 0x14, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x87}}, cfg, model.Hash{}, 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if offer == nil {
		t.Fatal("expected fallback offer")
	}
	if offer.Matched() {
		t.Error("expected unmatched offer (OutputIdx nil)")
	}
}
