// Package remote implements RemoteQueryClient (spec.md §4.6): filter
// builders and a base64(JSON)-query client dispatching to the two
// upstream bitdb-family endpoints (one BCH-side, one SLP-side).
//
// Grounded on _examples/original_source/slpdexdb_db/src/tx_source.rs
// (TxFilter::slp_conditions/bch_conditions/base_conditions/sort_by) for
// the exact per-filter condition shapes.
package remote

import (
	"encoding/base64"
	"strings"

	"github.com/slpdexd/indexer/internal/cashaddr"
	"github.com/slpdexd/indexer/internal/model"
)

// Endpoint selects which upstream query endpoint a Filter set targets —
// the condition shape for Address and Exch differs by endpoint (spec.md
// §4.6).
type Endpoint int

const (
	EndpointSLP Endpoint = iota
	EndpointBCH
)

// Confirmedness selects which of an upstream response's "u"/"c" result
// arrays to consume.
type Confirmedness int

const (
	ConfirmedOnly Confirmedness = iota
	UnconfirmedOnly
	Both
)

func (c Confirmedness) dbSet() []string {
	switch c {
	case ConfirmedOnly:
		return []string{"c"}
	case UnconfirmedOnly:
		return []string{"u"}
	default:
		return []string{"u", "c"}
	}
}

// Filter is one composable query condition. Filters are applied in order
// to a queryCtx accumulating the endpoint-appropriate $and conditions.
type Filter func(c *queryCtx)

type queryCtx struct {
	endpoint   Endpoint
	hasExch    bool
	exchVer    byte
	addresses  []model.AddressHash
	tokenID    *model.Hash
	minHeight  *int32
	minTxHash  *model.Hash
	txHashes   []model.Hash
	sortByHash bool
}

// Address adds an address condition; its rendering depends on whether
// Exch is also present in the same filter set and which Endpoint the
// query targets (spec.md §4.6).
func Address(addr model.AddressHash) Filter {
	return func(c *queryCtx) { c.addresses = append(c.addresses, addr) }
}

// TokenID filters to transactions of one SLP token.
func TokenID(id model.Hash) Filter {
	return func(c *queryCtx) { t := id; c.tokenID = &t }
}

// MinBlockHeight includes unconfirmed txs (no blk) plus confirmed txs at
// or above h.
func MinBlockHeight(h int32) Filter {
	return func(c *queryCtx) { v := h; c.minHeight = &v }
}

// MinTxHash requires tx.h > hex(h) under the active sort order.
func MinTxHash(h model.Hash) Filter {
	return func(c *queryCtx) { v := h; c.minTxHash = &v }
}

// TxHash restricts to one or more explicit transaction hashes.
func TxHash(h model.Hash) Filter {
	return func(c *queryCtx) { c.txHashes = append(c.txHashes, h) }
}

// Exch marks the query as covenant-scoped: the EXCH LOKAD id and covenant
// version opcode must appear at input stack positions 0/1.
func Exch(version byte) Filter {
	return func(c *queryCtx) { c.hasExch = true; c.exchVer = version }
}

// SortByTxHash orders results by ascending tx.h — required for the
// MinTxHash-keyed resync cursor to make progress (spec.md §4.7).
func SortByTxHash() Filter {
	return func(c *queryCtx) { c.sortByHash = true }
}

func newQueryCtx(endpoint Endpoint, filters []Filter) *queryCtx {
	c := &queryCtx{endpoint: endpoint}
	for _, f := range filters {
		f(c)
	}
	return c
}

// conditions renders the accumulated filters into the $and array for the
// given endpoint, following spec.md §4.6's bullet list exactly.
func (c *queryCtx) conditions() []map[string]any {
	var and []map[string]any

	if c.endpoint == EndpointSLP {
		if c.hasExch {
			and = append(and,
				map[string]any{"in.b0": base64.StdEncoding.EncodeToString([]byte("EXCH"))},
				map[string]any{"in.b1": map[string]any{"op": 0x50 + int(c.exchVer)}},
			)
		}
		if c.tokenID != nil {
			and = append(and, map[string]any{"slp.detail.tokenIdHex": c.tokenID.Hex()})
		}
		if len(c.addresses) > 0 {
			if c.hasExch {
				// in.b4 carries the raw 20-byte hash as pushed on the
				// covenant's input stack.
				vals := make([]string, len(c.addresses))
				for i, a := range c.addresses {
					vals[i] = base64.StdEncoding.EncodeToString(a.Bytes[:])
				}
				and = append(and, map[string]any{"in.b4": map[string]any{"$in": vals}})
			} else {
				vals := make([]string, len(c.addresses))
				for i, a := range c.addresses {
					vals[i] = cashaddr.Encode("simpleledger", a)
				}
				and = append(and, map[string]any{"$or": []map[string]any{
					{"out.e.a": map[string]any{"$in": vals}},
					{"in.e.a": map[string]any{"$in": vals}},
				}})
			}
		}
		and = append(and, map[string]any{"slp.valid": true})
	} else {
		and = append(and, map[string]any{"out.b1": map[string]any{"$ne": base64.StdEncoding.EncodeToString([]byte("SLP\x00"))}})
		if len(c.addresses) > 0 {
			vals := make([]string, len(c.addresses))
			for i, a := range c.addresses {
				full := cashaddr.Encode("bitcoincash", a)
				vals[i] = strings.TrimPrefix(full, "bitcoincash:")
			}
			and = append(and, map[string]any{"out.e.a": map[string]any{"$in": vals}})
		}
	}

	if c.minHeight != nil {
		and = append(and, map[string]any{"$or": []map[string]any{
			{"blk": map[string]any{"$exists": false}},
			{"blk.i": map[string]any{"$gte": *c.minHeight}},
		}})
	}
	if c.minTxHash != nil {
		and = append(and, map[string]any{"tx.h": map[string]any{"$gt": c.minTxHash.Hex()}})
	}
	if len(c.txHashes) > 0 {
		hashes := make([]string, len(c.txHashes))
		for i, h := range c.txHashes {
			hashes[i] = h.Hex()
		}
		and = append(and, map[string]any{"tx.h": map[string]any{"$in": hashes}})
	}
	return and
}

func (c *queryCtx) sort() map[string]any {
	if c.sortByHash {
		return map[string]any{"tx.h": 1}
	}
	return nil
}
