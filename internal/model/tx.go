package model

import "github.com/slpdexd/indexer/internal/decimal"

// SLPSubtype enumerates the recognized SLP transaction subtypes
// (spec.md §3 TxKind).
type SLPSubtype int

const (
	SLPSubtypeGenesis SLPSubtype = iota
	SLPSubtypeMint
	SLPSubtypeSend
	SLPSubtypeCommit
)

func (s SLPSubtype) String() string {
	switch s {
	case SLPSubtypeGenesis:
		return "GENESIS"
	case SLPSubtypeMint:
		return "MINT"
	case SLPSubtypeSend:
		return "SEND"
	case SLPSubtypeCommit:
		return "COMMIT"
	default:
		return "UNKNOWN"
	}
}

// SLPSubtypeFromString maps the ASCII subtype pushed in the OP_RETURN
// payload to the SLPSubtype enum.
func SLPSubtypeFromString(s string) (SLPSubtype, bool) {
	switch s {
	case "GENESIS":
		return SLPSubtypeGenesis, true
	case "MINT":
		return SLPSubtypeMint, true
	case "SEND":
		return SLPSubtypeSend, true
	case "COMMIT":
		return SLPSubtypeCommit, true
	default:
		return 0, false
	}
}

// TxKind tags a HistoricTx as a plain transaction or an SLP transaction
// carrying a token id/type/subtype (spec.md §3).
type TxKind struct {
	IsSLP     bool
	TokenID   Hash
	TokenType int32
	Subtype   SLPSubtype
}

// DefaultTxKind is the plain, non-SLP transaction kind.
var DefaultTxKind = TxKind{}

// TokenHash returns the token id when the kind is SLP, else nil.
func (k TxKind) TokenHash() *Hash {
	if !k.IsSLP {
		return nil
	}
	h := k.TokenID
	return &h
}

// OutputKindTag discriminates an output/input's script recognition result
// (spec.md §3 OutputKind).
type OutputKindTag int

const (
	OutputUnknown OutputKindTag = iota
	OutputOpReturn
	OutputAddress
	OutputBurned
)

// OutputKind carries the tag plus, for Address, the decoded hash.
type OutputKind struct {
	Tag     OutputKindTag
	Address AddressHash
}

// AddressOf returns the address hash when Tag == OutputAddress.
func (o OutputKind) AddressOf() *AddressHash {
	if o.Tag != OutputAddress {
		return nil
	}
	a := o.Address
	return &a
}

// TxInput is one spent prevout reference plus its recognized script kind.
type TxInput struct {
	PrevTx   Hash
	PrevVout int32
	Output   OutputKind
}

// TxOutput is one created output: value, decoded token amount (zero for
// non-SLP outputs), and recognized script kind.
type TxOutput struct {
	ValueSats   uint64
	ValueToken  decimal.Amount
	Output      OutputKind
}

// HistoricTx is the fully classified transaction (spec.md §3).
type HistoricTx struct {
	Hash      Hash
	Height    *int32
	Timestamp int64
	Kind      TxKind
	Inputs    []TxInput
	Outputs   []TxOutput
}

// TradeOffer is a recognized EXCH covenant attachment (spec.md §3).
type TradeOffer struct {
	Tx               Hash
	OutputIdx        *int32
	InputTx          Hash
	InputIdx         int32
	PricePerToken    *decimal.Rational
	ScriptPrice      int64
	IsInverted       bool
	SellAmountToken  decimal.Amount
	ReceivingAddress AddressHash
}

// Matched reports whether the offer's covenant hash matched an output
// (OutputIdx != nil), per spec.md §3's invariant.
func (t TradeOffer) Matched() bool { return t.OutputIdx != nil }
