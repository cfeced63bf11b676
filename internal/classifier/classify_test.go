package classifier

import (
	"strings"
	"testing"

	"github.com/slpdexd/indexer/internal/model"
	"github.com/slpdexd/indexer/internal/tradeoffer"
)

type fakeTokens struct {
	token model.Token
}

func (f fakeTokens) GetOrFetch(id model.Hash) (model.Token, error) {
	return f.token, nil
}

var zeroHash64 = strings.Repeat("00", 32)

func TestFromEntriesDefaultTx(t *testing.T) {
	addr := "bitcoincash:qpm2qsznhks23z7629mms6s4cwef74vcwvy22gdx6a"
	entries := []Entry{
		{
			TxHash: "ab" + strings.Repeat("00", 31),
			Inputs: []EntryInput{{PrevTxHash: zeroHash64, PrevVout: 0}},
			Outputs: []EntryOutput{
				{ValueSats: 546, Address: &addr},
			},
		},
	}
	results, err := FromEntries(entries, 1000, tradeoffer.Config{}, fakeTokens{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Tx.Kind.IsSLP {
		t.Error("expected non-SLP tx kind")
	}
	if results[0].Offer != nil {
		t.Error("expected no trade offer for non-SLP tx")
	}
}

func TestFromEntriesSLPTx(t *testing.T) {
	entries := []Entry{
		{
			TxHash: "cd" + strings.Repeat("00", 31),
			Inputs: []EntryInput{{PrevTxHash: zeroHash64, PrevVout: 1}},
			Outputs: []EntryOutput{
				{ValueSats: 0},
				{ValueSats: 546},
			},
			SLP: &EntrySLP{
				Decimals:        2,
				TokenIDHex:      "ab" + strings.Repeat("00", 31),
				TransactionType: "SEND",
				VersionType:     1,
				OutputAmounts:   []string{"10.00"},
			},
		},
	}
	results, err := FromEntries(entries, 1000, tradeoffer.Config{}, fakeTokens{token: model.Token{Decimals: 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !results[0].Tx.Kind.IsSLP {
		t.Fatal("expected SLP tx kind")
	}
	if results[0].Tx.Outputs[1].ValueToken.Base().Int64() != 1000 {
		t.Errorf("expected base 1000 (10.00 at 2 decimals), got %s", results[0].Tx.Outputs[1].ValueToken.Base())
	}
}
