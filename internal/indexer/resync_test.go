package indexer

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/wire"

	"github.com/slpdexd/indexer/internal/classifier"
	"github.com/slpdexd/indexer/internal/decimal"
	"github.com/slpdexd/indexer/internal/model"
	"github.com/slpdexd/indexer/internal/remote"
	"github.com/slpdexd/indexer/internal/store"
	"github.com/slpdexd/indexer/internal/tradeoffer"
	"github.com/slpdexd/indexer/internal/validator"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.RunMigrations(); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return s
}

type fakeTokenSource struct {
	pages [][]model.Token
	calls int
}

func (f *fakeTokenSource) RequestTokens(ctx context.Context, filters ...remote.Filter) ([]model.Token, error) {
	if f.calls >= len(f.pages) {
		return nil, nil
	}
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

type fakeTxSource struct {
	pages [][]classifier.Entry
	calls int
}

func (f *fakeTxSource) RequestTxs(ctx context.Context, endpoint remote.Endpoint, confirmedness remote.Confirmedness, filters ...remote.Filter) ([]classifier.Entry, error) {
	if f.calls >= len(f.pages) {
		return nil, nil
	}
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

type fakeLookup struct{}

func (fakeLookup) GetOrFetch(id model.Hash) (model.Token, error) {
	return model.Token{ID: id, Decimals: 0}, nil
}

type fakeValidity struct{}

func (fakeValidity) RequestSLPValidity(prevHashes []model.Hash) (map[model.Hash]validator.Validity, error) {
	return nil, nil
}

func TestResyncTokensStopsOnEmptyPage(t *testing.T) {
	id := model.Hash{0xAA}
	symbol := "TOK"
	tok := model.Token{
		ID: id, Decimals: 2, Timestamp: 100, BlockCreatedHeight: 5,
		Symbol:        &symbol,
		InitialSupply: decimal.Zero(2), CurrentSupply: decimal.Zero(2),
	}
	tokens := &fakeTokenSource{pages: [][]model.Token{{tok}}}
	e := &Engine{Store: newTestStore(t), Tokens: tokens}

	if err := e.ResyncTokens(context.Background()); err != nil {
		t.Fatalf("resync tokens: %v", err)
	}
	if tokens.calls != 2 {
		t.Fatalf("expected two pages fetched (one with data, one empty to stop), got %d", tokens.calls)
	}

	got, ok, err := e.Store.Token(id)
	if err != nil || !ok {
		t.Fatalf("expected token persisted, ok=%v err=%v", ok, err)
	}
	if *got.Symbol != "TOK" {
		t.Errorf("expected symbol TOK, got %+v", got)
	}

	cp, ok, err := e.Store.LastUpdate(model.Subject{Kind: model.SubjectToken, IsConfirmed: true})
	if err != nil || !ok {
		t.Fatalf("expected a checkpoint, ok=%v err=%v", ok, err)
	}
	if cp.LastHeight != 5 {
		t.Errorf("expected checkpoint height 5, got %d", cp.LastHeight)
	}
}

func TestResyncTradeOffersRebuildsUtxoSet(t *testing.T) {
	entries := []classifier.Entry{{TxHash: strings.Repeat("ab", 32)}}
	txs := &fakeTxSource{pages: [][]classifier.Entry{entries}}
	e := &Engine{
		Store:    newTestStore(t),
		Txs:      txs,
		Lookup:   fakeLookup{},
		TradeCfg: tradeoffer.Config{Version: 1},
	}
	if err := e.ResyncTradeOffers(context.Background()); err != nil {
		t.Fatalf("resync trade offers: %v", err)
	}
}

func TestProcessTransactionsSkipsIrrelevantBatches(t *testing.T) {
	e := &Engine{
		Store:    newTestStore(t),
		Lookup:   fakeLookup{},
		Validity: fakeValidity{},
		TradeCfg: tradeoffer.Config{Version: 1},
	}
	results, err := e.ProcessTransactions(nil, func(tx *wire.MsgTx) (inputScripts, outputScripts [][]byte) { return nil, nil }, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results != nil {
		t.Errorf("expected nil results for an empty/irrelevant batch, got %v", results)
	}
}
