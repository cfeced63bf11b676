package remote

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/slpdexd/indexer/internal/model"
)

func TestBuildEnvelopeExchFilter(t *testing.T) {
	b64 := buildEnvelope(EndpointSLP, Both, []Filter{Exch(1), SortByTxHash()})
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("envelope is not valid base64: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("envelope is not valid json: %v", err)
	}
	if decoded["v"].(float64) != 3 {
		t.Errorf("expected v=3, got %v", decoded["v"])
	}
	q := decoded["q"].(map[string]any)
	db := q["db"].([]any)
	if len(db) != 2 {
		t.Errorf("expected both u and c in db set, got %v", db)
	}
	sort := q["sort"].(map[string]any)
	if sort["tx.h"].(float64) != 1 {
		t.Errorf("expected sort by tx.h ascending, got %v", sort)
	}
	and := q["find"].(map[string]any)["$and"].([]any)
	foundB0 := false
	for _, cond := range and {
		m := cond.(map[string]any)
		if v, ok := m["in.b0"]; ok {
			foundB0 = true
			if v.(string) != base64.StdEncoding.EncodeToString([]byte("EXCH")) {
				t.Errorf("expected in.b0 to be base64(EXCH), got %v", v)
			}
		}
	}
	if !foundB0 {
		t.Error("expected in.b0 condition from Exch filter")
	}
}

func TestBuildEnvelopeBCHExcludesSLP(t *testing.T) {
	b64 := buildEnvelope(EndpointBCH, ConfirmedOnly, nil)
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("envelope is not valid base64: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("envelope is not valid json: %v", err)
	}
	and := decoded["q"].(map[string]any)["find"].(map[string]any)["$and"].([]any)
	found := false
	for _, cond := range and {
		m := cond.(map[string]any)
		if v, ok := m["out.b1"]; ok {
			found = true
			ne := v.(map[string]any)["$ne"].(string)
			if ne != base64.StdEncoding.EncodeToString([]byte("SLP\x00")) {
				t.Errorf("expected out.b1 $ne base64(SLP\\0), got %v", ne)
			}
		}
	}
	if !found {
		t.Error("expected out.b1 condition on BCH-side query")
	}
}

func TestBuildEnvelopeMinTxHash(t *testing.T) {
	var h model.Hash
	h[0] = 0xAB
	b64 := buildEnvelope(EndpointSLP, Both, []Filter{MinTxHash(h)})
	raw, _ := base64.StdEncoding.DecodeString(b64)
	if !strings.Contains(string(raw), "tx.h") {
		t.Errorf("expected tx.h condition, got %s", raw)
	}
}
