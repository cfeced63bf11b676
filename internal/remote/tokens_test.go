package remote

import "testing"

func TestTokenFromEntryNotMinedYet(t *testing.T) {
	e := rawTokenEntry{TokenDetails: rawTokenDetails{TokenIDHex: "ab"}}
	if _, err := tokenFromEntry(e); err == nil {
		t.Fatal("expected an error for a token with no block_created/timestamp_unix yet")
	}
}

func TestTokenFromEntryParsesSupplies(t *testing.T) {
	ts := int64(1600000000)
	height := int32(650000)
	e := rawTokenEntry{
		TokenDetails: rawTokenDetails{
			Decimals:         2,
			TokenIDHex:       "abababababababababababababababababababababababababababababababab",
			TimestampUnix:    &ts,
			VersionType:      1,
			Symbol:           "TOK",
			GenesisOrMintQty: "1000.00",
		},
		TokenStats: rawTokenStats{
			BlockCreated:              &height,
			QtyTokenCirculatingSupply: "950.50",
		},
	}
	tok, err := tokenFromEntry(e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Symbol == nil || *tok.Symbol != "TOK" {
		t.Errorf("expected symbol TOK, got %+v", tok.Symbol)
	}
	if tok.CurrentSupply.Base().Int64() != 95050 {
		t.Errorf("expected current supply base 95050, got %s", tok.CurrentSupply.Base())
	}
	if tok.BlockCreatedHeight != 650000 {
		t.Errorf("expected block created height 650000, got %d", tok.BlockCreatedHeight)
	}
}

func TestBuildTokenEnvelopeNoFilters(t *testing.T) {
	envelope := buildTokenEnvelope(nil)
	if envelope == "" {
		t.Fatal("expected a non-empty base64 envelope")
	}
}
