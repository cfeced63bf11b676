package model

import "github.com/slpdexd/indexer/internal/decimal"

// Token is the SLP token metadata row (spec.md §3).
type Token struct {
	ID                 Hash
	Decimals           uint8
	Timestamp          int64
	VersionType        int32
	DocumentURI        *string
	Symbol             *string
	Name               *string
	DocumentHash       *[32]byte
	InitialSupply      decimal.Amount
	CurrentSupply      decimal.Amount
	BlockCreatedHeight int32
}
