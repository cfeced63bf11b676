package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/slpdexd/indexer/internal/broadcast"
	"github.com/slpdexd/indexer/internal/model"
)

const outboundBuffer = 64

// Store is the subset of internal/store.Store a session needs for its
// connect-time activation and snapshot.
type Store interface {
	SetAddressActive(addr model.AddressHash, active bool) error
	UtxosAddress(addr model.AddressHash) ([]model.Utxo, error)
	AddressTxDeltas(addr model.AddressHash) ([]model.TxDelta, error)
}

// Resyncer pulls an address's full history before its first snapshot is
// read, mirroring tx_actor.rs's ActivateAddress handler (set_address_active
// then ResyncAddress, in that order, before any fetch).
type Resyncer interface {
	ResyncAddress(ctx context.Context, addr model.AddressHash) error
}

// Conn is the subset of *websocket.Conn a Session drives, narrowed so
// tests can substitute an in-memory fake.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Session is one client's connection to /ws/{cash_address} (spec.md §6.4).
type Session struct {
	id      string
	address model.AddressHash
	conn    Conn
	store   Store
	resync  Resyncer
	bus     *broadcast.Bus

	out chan []byte

	mu      sync.Mutex
	tokens  map[model.Hash]struct{}
	evicted atomic.Bool
}

// New constructs a session for addr over conn. id must be unique per
// connection; internal/api mints one with google/uuid.
func New(id string, addr model.AddressHash, conn Conn, store Store, resync Resyncer, bus *broadcast.Bus) *Session {
	return &Session{
		id: id, address: addr, conn: conn, store: store, resync: resync, bus: bus,
		out:    make(chan []byte, outboundBuffer),
		tokens: make(map[model.Hash]struct{}),
	}
}

// Run activates the address, resyncs its history, sends the connect-time
// snapshot, and then serves the session until the connection closes or
// ctx is cancelled. It blocks; callers run it in the request goroutine
// the HTTP upgrade handed them.
func (s *Session) Run(ctx context.Context) error {
	if err := s.store.SetAddressActive(s.address, true); err != nil {
		return fmt.Errorf("session %s: activate address: %w", s.id, err)
	}
	if s.resync != nil {
		if err := s.resync.ResyncAddress(ctx, s.address); err != nil {
			return fmt.Errorf("session %s: resync address: %w", s.id, err)
		}
	}
	s.bus.Subscribe(s.id, s, s.address)
	defer s.bus.UnsubscribeAll(s.id)

	if err := s.sendSnapshot(); err != nil {
		return fmt.Errorf("session %s: snapshot: %w", s.id, err)
	}

	writerDone := make(chan struct{})
	go s.writeLoop(writerDone)
	defer func() {
		close(s.out)
		<-writerDone
	}()

	return s.readLoop(ctx)
}

func (s *Session) sendSnapshot() error {
	utxos, err := s.store.UtxosAddress(s.address)
	if err != nil {
		return fmt.Errorf("utxos address: %w", err)
	}
	wire := make([]utxoWire, len(utxos))
	for i, u := range utxos {
		wire[i] = utxoToWire(u)
	}
	if err := s.enqueue(addressUtxoFrame{Type: "AddressUtxo", AddUtxos: wire, RemoveUtxos: []spentWire{}}); err != nil {
		return err
	}

	deltas, err := s.store.AddressTxDeltas(s.address)
	if err != nil {
		return fmt.Errorf("address tx deltas: %w", err)
	}
	deltaWire := make([]txDeltaWire, len(deltas))
	for i, d := range deltas {
		deltaWire[i] = txDeltaToWire(d)
	}
	return s.enqueue(txHistoryFrame{Type: "TxHistory", AddTxHistory: deltaWire})
}

func (s *Session) readLoop(ctx context.Context) error {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil
		}
		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			slog.Warn("session dropping malformed frame", "session", s.id, "err", err)
			continue
		}
		switch env.Type {
		case "ListenToTokens":
			var frame listenToTokensFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				slog.Warn("session dropping malformed ListenToTokens frame", "session", s.id, "err", err)
				continue
			}
			s.listenToTokens(frame.TokenIDsHex)
		default:
			slog.Warn("session ignoring unknown frame type", "session", s.id, "type", env.Type)
		}
	}
}

// listenToTokens replaces the session's entire token subscription set,
// matching spec.md §6.4's "re-subscribe the session to exactly that token
// set" (additive subscribe is the wrong shape here).
func (s *Session) listenToTokens(hexIDs []string) {
	next := make(map[model.Hash]struct{}, len(hexIDs))
	for _, h := range hexIDs {
		id, err := model.HashFromHex(h)
		if err != nil {
			slog.Warn("session ignoring invalid tokenIdHex", "session", s.id, "hex", h, "err", err)
			continue
		}
		next[id] = struct{}{}
	}

	s.mu.Lock()
	prev := s.tokens
	s.tokens = next
	s.mu.Unlock()

	for id := range prev {
		if _, stillWanted := next[id]; !stillWanted {
			s.bus.UnsubscribeToken(s.id, id)
		}
	}
	for id := range next {
		if _, alreadyHad := prev[id]; !alreadyHad {
			s.bus.SubscribeToken(s.id, s, id)
		}
	}
}

func (s *Session) writeLoop(done chan struct{}) {
	defer close(done)
	for data := range s.out {
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// enqueue buffers v for delivery. A full outbound buffer means the client
// can't keep up; spec.md §9 resolves this by evicting the subscriber from
// the bus (rather than blocking the publisher or growing the buffer
// unbounded) and logging once, not on every subsequent dropped frame.
func (s *Session) enqueue(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	select {
	case s.out <- data:
	default:
		if s.evicted.CompareAndSwap(false, true) {
			slog.Warn("session outbound buffer full, evicting subscriber", "session", s.id)
			s.bus.UnsubscribeAll(s.id)
		}
	}
	return nil
}

// NotifyAddressUtxoDelta implements broadcast.Subscriber.
func (s *Session) NotifyAddressUtxoDelta(addr model.AddressHash, delta broadcast.AddressUtxoDelta) {
	add := make([]utxoWire, len(delta.Add))
	for i, u := range delta.Add {
		add[i] = utxoToWire(u)
	}
	remove := make([]spentWire, len(delta.Remove))
	for i, r := range delta.Remove {
		remove[i] = spentWire{Tx: r.TxHash.Hex(), Vout: r.Vout}
	}
	_ = s.enqueue(addressUtxoFrame{Type: "AddressUtxo", AddUtxos: add, RemoveUtxos: remove})
}

// NotifyTradeOfferUtxoDelta implements broadcast.Subscriber.
func (s *Session) NotifyTradeOfferUtxoDelta(token model.Hash, delta broadcast.TradeOfferUtxoDelta) {
	add := make([]tradeOfferWire, len(delta.Add))
	for i, o := range delta.Add {
		add[i] = tradeOfferToWire(token, o)
	}
	remove := make([]spentWire, len(delta.Remove))
	for i, r := range delta.Remove {
		remove[i] = spentWire{Tx: r.TxHash.Hex(), Vout: r.Vout}
	}
	_ = s.enqueue(tradeOfferUtxoFrame{Type: "TradeOfferUtxo", AddUtxos: add, RemoveUtxos: remove})
}

// NotifyAddressTxDeltas implements broadcast.Subscriber.
func (s *Session) NotifyAddressTxDeltas(addr model.AddressHash, deltas []model.TxDelta) {
	wire := make([]txDeltaWire, len(deltas))
	for i, d := range deltas {
		wire[i] = txDeltaToWire(d)
	}
	_ = s.enqueue(txHistoryFrame{Type: "TxHistory", AddTxHistory: wire})
}
