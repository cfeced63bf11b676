// Package session implements the per-client websocket session (spec.md
// §6.4): connect-time activation + snapshot, the `ListenToTokens`
// re-subscription frame, and live event delivery off internal/broadcast's
// subscription bus.
//
// Grounded on
// _examples/original_source/slpdexdb_endpoint/src/actors/ws_actor.rs and
// slpdexdb_endpoint/src/actors/tx_actor.rs's ActivateAddress handler.
package session

import (
	"github.com/slpdexd/indexer/internal/decimal"
	"github.com/slpdexd/indexer/internal/model"
)

type addressUtxoFrame struct {
	Type        string      `json:"type"`
	AddUtxos    []utxoWire  `json:"addUtxos"`
	RemoveUtxos []spentWire `json:"removeUtxos"`
}

type utxoWire struct {
	Tx             string  `json:"tx"`
	Vout           int32   `json:"vout"`
	ValueSatoshis  uint64  `json:"valueSatoshis"`
	ValueToken     string  `json:"valueToken"`
	ValueTokenBase string  `json:"valueTokenBase"`
	TokenIDHex     *string `json:"tokenIdHex,omitempty"`
}

type spentWire struct {
	Tx   string `json:"tx"`
	Vout int32  `json:"vout"`
}

type tradeOfferUtxoFrame struct {
	Type        string           `json:"type"`
	AddUtxos    []tradeOfferWire `json:"addUtxos"`
	RemoveUtxos []spentWire      `json:"removeUtxos"`
}

type tradeOfferWire struct {
	Tx                  string `json:"tx"`
	OutputVout          *int32 `json:"outputVout,omitempty"`
	InputTx             string `json:"inputTx"`
	InputVout           int32  `json:"inputVout"`
	PricePerToken       string `json:"pricePerToken"`
	ScriptPrice         int64  `json:"scriptPrice"`
	IsInverted          bool   `json:"isInverted"`
	SellAmountTokenBase string `json:"sellAmountTokenBase"`
	ReceivingAddress    string `json:"receivingAddress"`
	TokenIDHex          string `json:"tokenIdHex"`
}

type txHistoryFrame struct {
	Type         string        `json:"type"`
	AddTxHistory []txDeltaWire `json:"addTxHistory"`
}

type txDeltaWire struct {
	Tx             string  `json:"tx"`
	DeltaSatoshis  int64   `json:"deltaSatoshis"`
	DeltaToken     string  `json:"deltaToken"`
	DeltaTokenBase string  `json:"deltaTokenBase"`
	TokenIDHex     *string `json:"tokenIdHex,omitempty"`
	Timestamp      int64   `json:"timestamp"`
}

// listenToTokensFrame is the one incoming frame shape a client can send.
type listenToTokensFrame struct {
	Type        string   `json:"type"`
	TokenIDsHex []string `json:"tokenIdsHex"`
}

func tokenHexPtr(h *model.Hash) *string {
	if h == nil {
		return nil
	}
	s := h.Hex()
	return &s
}

func utxoToWire(u model.Utxo) utxoWire {
	return utxoWire{
		Tx: u.TxHash.Hex(), Vout: u.Vout, ValueSatoshis: u.ValueSats,
		ValueToken: u.ValueToken.String(), ValueTokenBase: u.ValueToken.Base().String(),
		TokenIDHex: tokenHexPtr(u.TokenHash),
	}
}

func txDeltaToWire(d model.TxDelta) txDeltaWire {
	return txDeltaWire{
		Tx: d.TxHash.Hex(), DeltaSatoshis: d.DeltaSatoshis,
		DeltaToken: d.DeltaToken.String(), DeltaTokenBase: d.DeltaToken.Base().String(),
		TokenIDHex: tokenHexPtr(d.TokenHash), Timestamp: d.Timestamp,
	}
}

func tradeOfferToWire(tokenID model.Hash, offer model.TradeOffer) tradeOfferWire {
	var price string
	if offer.PricePerToken != nil {
		price = offer.PricePerToken.String()
	} else {
		price = decimal.Zero(0).String()
	}
	return tradeOfferWire{
		Tx: offer.Tx.Hex(), OutputVout: offer.OutputIdx, InputTx: offer.InputTx.Hex(),
		InputVout: offer.InputIdx, PricePerToken: price, ScriptPrice: offer.ScriptPrice,
		IsInverted: offer.IsInverted, SellAmountTokenBase: offer.SellAmountToken.Base().String(),
		ReceivingAddress: offer.ReceivingAddress.String(), TokenIDHex: tokenID.Hex(),
	}
}
