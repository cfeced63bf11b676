package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/slpdexd/indexer/internal/broadcast"
	"github.com/slpdexd/indexer/internal/decimal"
	"github.com/slpdexd/indexer/internal/model"
)

// fakeConn is an in-memory substitute for *websocket.Conn: inbound frames
// are fed through in, outbound writes are recorded in out.
type fakeConn struct {
	mu   sync.Mutex
	in   chan []byte
	out  [][]byte
	done bool
}

func newFakeConn() *fakeConn { return &fakeConn{in: make(chan []byte, 8)} }

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	data, ok := <-c.in
	if !ok {
		return 0, nil, errClosed
	}
	return 1, data, nil
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := append([]byte(nil), data...)
	c.out = append(c.out, cp)
	return nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.out...)
}

type stubError string

func (e stubError) Error() string { return string(e) }

const errClosed = stubError("closed")

type fakeStore struct {
	activated bool
	utxos     []model.Utxo
	deltas    []model.TxDelta
}

func (f *fakeStore) SetAddressActive(addr model.AddressHash, active bool) error {
	f.activated = active
	return nil
}
func (f *fakeStore) UtxosAddress(addr model.AddressHash) ([]model.Utxo, error) { return f.utxos, nil }
func (f *fakeStore) AddressTxDeltas(addr model.AddressHash) ([]model.TxDelta, error) {
	return f.deltas, nil
}

type fakeResyncer struct{ called bool }

func (f *fakeResyncer) ResyncAddress(ctx context.Context, addr model.AddressHash) error {
	f.called = true
	return nil
}

func TestSessionRunSendsConnectSnapshot(t *testing.T) {
	addr := model.AddressHash{Kind: model.AddrKindP2PKH}
	addr.Bytes[0] = 0x01
	store := &fakeStore{
		utxos: []model.Utxo{{TxHash: model.Hash{0xAA}, Vout: 0, ValueSats: 546, ValueToken: decimal.Zero(0)}},
	}
	resync := &fakeResyncer{}
	conn := newFakeConn()
	bus := broadcast.NewBus()
	s := New("sess-1", addr, conn, store, resync, bus)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	close(conn.in) // simulate immediate disconnect after snapshot is flushed
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	if !resync.called {
		t.Error("expected ResyncAddress to run before the snapshot")
	}
	if !store.activated {
		t.Error("expected the address to be marked active")
	}

	writes := conn.writes()
	if len(writes) != 2 {
		t.Fatalf("expected 2 snapshot frames (AddressUtxo, TxHistory), got %d", len(writes))
	}
	var utxoFrame addressUtxoFrame
	if err := json.Unmarshal(writes[0], &utxoFrame); err != nil {
		t.Fatalf("decode utxo frame: %v", err)
	}
	if utxoFrame.Type != "AddressUtxo" || len(utxoFrame.AddUtxos) != 1 {
		t.Errorf("unexpected utxo frame: %+v", utxoFrame)
	}
}

func TestSessionListenToTokensReplacesSubscriptionSet(t *testing.T) {
	addr := model.AddressHash{Kind: model.AddrKindP2PKH}
	store := &fakeStore{}
	conn := newFakeConn()
	bus := broadcast.NewBus()
	s := New("sess-2", addr, conn, store, nil, bus)

	tokenA := model.Hash{0x01}
	tokenB := model.Hash{0x02}

	s.listenToTokens([]string{tokenA.Hex()})
	if _, ok := s.tokens[tokenA]; !ok {
		t.Fatal("expected tokenA subscribed")
	}

	s.listenToTokens([]string{tokenB.Hex()})
	if _, ok := s.tokens[tokenA]; ok {
		t.Error("expected tokenA to be dropped on replace")
	}
	if _, ok := s.tokens[tokenB]; !ok {
		t.Error("expected tokenB subscribed")
	}

	// Confirm the bus still routes tokenA deltas after the replace: an
	// observer subscribed to tokenA receives exactly one notification.
	var delivered int
	recorder := recorderSubscriber{onTradeOffer: func() { delivered++ }}
	bus.SubscribeToken("observer", recorder, tokenA)
	bus.PublishTradeOfferUtxoDeltas(map[model.Hash]broadcast.TradeOfferUtxoDelta{tokenA: {}})
	if delivered != 1 {
		t.Fatalf("expected the observer (still subscribed to tokenA) to be notified once, got %d", delivered)
	}
}

func TestSessionEnqueueEvictsOnFullBuffer(t *testing.T) {
	addr := model.AddressHash{Kind: model.AddrKindP2PKH}
	store := &fakeStore{}
	conn := newFakeConn()
	bus := broadcast.NewBus()
	s := New("sess-3", addr, conn, store, nil, bus)
	bus.Subscribe(s.id, s, addr)

	for i := 0; i < outboundBuffer; i++ {
		if err := s.enqueue(txHistoryFrame{Type: "TxHistory"}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if len(bus.Relevant()) != 1 {
		t.Fatal("expected session still subscribed while buffer has room")
	}

	if err := s.enqueue(txHistoryFrame{Type: "TxHistory"}); err != nil {
		t.Fatalf("enqueue over capacity: %v", err)
	}
	if len(bus.Relevant()) != 0 {
		t.Error("expected a full outbound buffer to evict the session from the bus")
	}
}

type recorderSubscriber struct {
	onTradeOffer func()
}

func (r recorderSubscriber) NotifyAddressUtxoDelta(model.AddressHash, broadcast.AddressUtxoDelta) {}
func (r recorderSubscriber) NotifyTradeOfferUtxoDelta(model.Hash, broadcast.TradeOfferUtxoDelta) {
	r.onTradeOffer()
}
func (r recorderSubscriber) NotifyAddressTxDeltas(model.AddressHash, []model.TxDelta) {}
