package store

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/slpdexd/indexer/internal/classifier"
	"github.com/slpdexd/indexer/internal/decimal"
	"github.com/slpdexd/indexer/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.RunMigrations(); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return s
}

func mustHash(t *testing.T, b byte) model.Hash {
	t.Helper()
	var h model.Hash
	h[0] = b
	return h
}

func TestAddHeadersBootstrapsFromGenesis(t *testing.T) {
	s := newTestStore(t)

	child := model.BlockHeader{
		Version:    1,
		Prev:       model.Genesis.Hash(),
		MerkleRoot: mustHash(t, 0xAB),
		Timestamp:  1231006510,
		Bits:       0x1d00ffff,
		Nonce:      1,
	}
	if err := s.AddHeaders([]model.BlockHeader{child}); err != nil {
		t.Fatalf("add headers: %v", err)
	}

	tip, ok, err := s.HeaderTip()
	if err != nil {
		t.Fatalf("header tip: %v", err)
	}
	if !ok {
		t.Fatal("expected a tip")
	}
	if tip.Height != 1 {
		t.Errorf("expected height 1, got %d", tip.Height)
	}
	if tip.Header.Hash() != child.Hash() {
		t.Errorf("expected tip to be the child header")
	}
}

func TestAddHeadersRejectsOrphan(t *testing.T) {
	s := newTestStore(t)
	orphan := model.BlockHeader{Prev: mustHash(t, 0xFF), MerkleRoot: mustHash(t, 1)}
	if err := s.AddHeaders([]model.BlockHeader{orphan}); err == nil {
		t.Fatal("expected error chaining an orphan header")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	s := newTestStore(t)
	id := mustHash(t, 0xCD)
	symbol := "TOK"
	tok := model.Token{
		ID:                 id,
		Decimals:           2,
		Timestamp:          1000,
		VersionType:        1,
		Symbol:             &symbol,
		InitialSupply:      decimal.New(big.NewInt(100000), 2),
		CurrentSupply:      decimal.New(big.NewInt(100000), 2),
		BlockCreatedHeight: 5,
	}
	if err := s.AddTokens([]model.Token{tok}); err != nil {
		t.Fatalf("add tokens: %v", err)
	}
	got, ok, err := s.Token(id)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if !ok {
		t.Fatal("expected token to be found")
	}
	if got.Decimals != 2 || *got.Symbol != "TOK" {
		t.Errorf("unexpected token row: %+v", got)
	}
	if got.CurrentSupply.Base().Int64() != 100000 {
		t.Errorf("expected current supply base 100000, got %s", got.CurrentSupply.Base())
	}
}

func TestSetAddressActiveRoundTrip(t *testing.T) {
	s := newTestStore(t)
	addr := model.AddressHash{Kind: model.AddrKindP2PKH}
	addr.Bytes[0] = 0x11

	active, err := s.IsAddressActive(addr)
	if err != nil {
		t.Fatalf("is active: %v", err)
	}
	if active {
		t.Fatal("expected inactive by default")
	}

	if err := s.SetAddressActive(addr, true); err != nil {
		t.Fatalf("set active: %v", err)
	}
	active, err = s.IsAddressActive(addr)
	if err != nil || !active {
		t.Fatalf("expected active after set, got %v err %v", active, err)
	}

	addrs, err := s.ActiveAddresses()
	if err != nil || len(addrs) != 1 {
		t.Fatalf("expected 1 active address, got %d err %v", len(addrs), err)
	}

	if err := s.SetAddressActive(addr, false); err != nil {
		t.Fatalf("set inactive: %v", err)
	}
	active, err = s.IsAddressActive(addr)
	if err != nil || active {
		t.Fatalf("expected inactive after unset, got %v err %v", active, err)
	}
}

func TestAddTxHistoryAndUtxoProjection(t *testing.T) {
	s := newTestStore(t)
	addr := model.AddressHash{Kind: model.AddrKindP2PKH}
	addr.Bytes[0] = 0x22

	height := int32(10)
	tx := model.HistoricTx{
		Hash:      mustHash(t, 0x01),
		Height:    &height,
		Timestamp: 5000,
		Kind:      model.DefaultTxKind,
		Inputs:    []model.TxInput{{PrevTx: mustHash(t, 0x00), PrevVout: 0}},
		Outputs: []model.TxOutput{
			{ValueSats: 546, ValueToken: decimal.Zero(0), Output: model.OutputKind{Tag: model.OutputAddress, Address: addr}},
		},
	}
	if err := s.AddTxHistory([]classifier.Result{{Tx: tx}}); err != nil {
		t.Fatalf("add tx history: %v", err)
	}

	if err := s.RebuildUtxoAddress(addr); err != nil {
		t.Fatalf("rebuild utxo address: %v", err)
	}
	utxos, err := s.UtxosAddress(addr)
	if err != nil {
		t.Fatalf("utxos address: %v", err)
	}
	if len(utxos) != 1 || utxos[0].ValueSats != 546 {
		t.Fatalf("expected 1 utxo with 546 sats, got %+v", utxos)
	}

	// Spend it: a second tx consumes output 0 of tx.
	spendTx := model.HistoricTx{
		Hash:      mustHash(t, 0x02),
		Timestamp: 5100,
		Kind:      model.DefaultTxKind,
		Inputs:    []model.TxInput{{PrevTx: tx.Hash, PrevVout: 0, Output: model.OutputKind{Tag: model.OutputAddress, Address: addr}}},
		Outputs:   []model.TxOutput{{ValueSats: 500, ValueToken: decimal.Zero(0)}},
	}
	if err := s.AddTxHistory([]classifier.Result{{Tx: spendTx}}); err != nil {
		t.Fatalf("add spend tx: %v", err)
	}
	if err := s.RemoveUtxos([]model.SpentUtxo{{TxHash: tx.Hash, Vout: 0}}); err != nil {
		t.Fatalf("remove utxos: %v", err)
	}
	utxos, err = s.UtxosAddress(addr)
	if err != nil {
		t.Fatalf("utxos address after spend: %v", err)
	}
	if len(utxos) != 0 {
		t.Fatalf("expected 0 utxos after spend, got %d", len(utxos))
	}
}

func TestAddressTxDeltas(t *testing.T) {
	s := newTestStore(t)
	addr := model.AddressHash{Kind: model.AddrKindP2PKH}
	addr.Bytes[0] = 0x33

	tx := model.HistoricTx{
		Hash:      mustHash(t, 0x10),
		Timestamp: 7000,
		Kind:      model.DefaultTxKind,
		Outputs: []model.TxOutput{
			{ValueSats: 1000, ValueToken: decimal.Zero(0), Output: model.OutputKind{Tag: model.OutputAddress, Address: addr}},
		},
	}
	if err := s.AddTxHistory([]classifier.Result{{Tx: tx}}); err != nil {
		t.Fatalf("add tx history: %v", err)
	}

	deltas, err := s.AddressTxDeltas(addr)
	if err != nil {
		t.Fatalf("address tx deltas: %v", err)
	}
	if len(deltas) != 1 || deltas[0].DeltaSatoshis != 1000 {
		t.Fatalf("expected one +1000 sat delta, got %+v", deltas)
	}
}

func TestUpdateCheckpointRoundTrip(t *testing.T) {
	s := newTestStore(t)
	subject := model.Subject{Kind: model.SubjectToken}
	if _, ok, err := s.LastUpdate(subject); err != nil || ok {
		t.Fatalf("expected no checkpoint yet, got ok=%v err=%v", ok, err)
	}

	cp := model.UpdateCheckpoint{Subject: subject, LastHeight: 42, Completed: true, Timestamp: 123}
	if err := s.AddUpdateCheckpoint(cp); err != nil {
		t.Fatalf("add checkpoint: %v", err)
	}
	got, ok, err := s.LastUpdate(subject)
	if err != nil || !ok {
		t.Fatalf("expected checkpoint, got ok=%v err=%v", ok, err)
	}
	if got.LastHeight != 42 || !got.Completed {
		t.Errorf("unexpected checkpoint: %+v", got)
	}
}
