package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/slpdexd/indexer/internal/decimal"
	"github.com/slpdexd/indexer/internal/model"
)

// Token metadata lives on a separate "t" collection with its own field
// names (tokenDetails.*/tokenStats.*), so it gets its own envelope shape
// rather than reusing queryCtx.conditions(). Grounded on
// _examples/original_source/slpdexdb_db/src/token_source.rs's
// TokenSource::_conditions/_sort_by.
type tokenEnvelope struct {
	V int            `json:"v"`
	Q tokenQueryBody `json:"q"`
}

type tokenQueryBody struct {
	DB   string         `json:"db"`
	Find map[string]any `json:"find"`
	Sort map[string]any `json:"sort,omitempty"`
}

func buildTokenEnvelope(filters []Filter) string {
	c := newQueryCtx(EndpointSLP, filters)
	find := map[string]any{}
	if c.minTxHash != nil {
		find["tokenDetails.tokenIdHex"] = map[string]any{"$gt": c.minTxHash.Hex()}
	}
	if c.minHeight != nil {
		find["tokenStats.block_created"] = map[string]any{"$gte": *c.minHeight}
	}
	if c.tokenID != nil {
		find["tokenDetails.tokenIdHex"] = c.tokenID.Hex()
	}
	var sort map[string]any
	if c.sortByHash {
		sort = map[string]any{"tokenDetails.tokenIdHex": 1}
	}
	env := tokenEnvelope{V: 3, Q: tokenQueryBody{DB: "t", Find: find, Sort: sort}}
	body, _ := json.Marshal(env)
	return base64.StdEncoding.EncodeToString(body)
}

type rawTokenDetails struct {
	Decimals           int32   `json:"decimals"`
	TokenIDHex         string  `json:"tokenIdHex"`
	TimestampUnix      *int64  `json:"timestamp_unix"`
	TransactionType    string  `json:"transactionType"`
	VersionType        int32   `json:"versionType"`
	DocumentURI        string  `json:"documentUri"`
	DocumentSha256Hex  *string `json:"documentSha256Hex"`
	Symbol             string  `json:"symbol"`
	Name               string  `json:"name"`
	GenesisOrMintQty   string  `json:"genesisOrMintQuantity"`
}

type rawTokenStats struct {
	BlockCreated             *int32 `json:"block_created"`
	QtyTokenCirculatingSupply string `json:"qty_token_circulating_supply"`
}

type rawTokenEntry struct {
	TokenDetails rawTokenDetails `json:"tokenDetails"`
	TokenStats   rawTokenStats   `json:"tokenStats"`
}

type rawTokenResult struct {
	T []rawTokenEntry `json:"t"`
}

// strOrNil mirrors Token::str_or_empty: an empty string becomes absent
// metadata rather than a persisted empty string.
func strOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// tokenFromEntry converts one token_result.TokenEntry into model.Token.
// A token with no block_created/timestamp_unix yet (genesis seen
// unconfirmed, not yet mined) is reported via ErrTokenNotMinedYet and
// skipped by the caller rather than failing the whole page. Grounded on
// token.rs's Token::from_entry.
func tokenFromEntry(e rawTokenEntry) (model.Token, error) {
	d := e.TokenDetails
	if e.TokenStats.BlockCreated == nil || d.TimestampUnix == nil {
		return model.Token{}, fmt.Errorf("%w: %s", model.ErrTokenNotMinedYet, d.TokenIDHex)
	}
	id, err := model.HashFromHex(d.TokenIDHex)
	if err != nil {
		return model.Token{}, fmt.Errorf("token entry %s: %w", d.TokenIDHex, err)
	}
	decimals := uint8(d.Decimals)

	initialSupply, err := decimal.FromText(d.GenesisOrMintQty, decimals)
	if err != nil {
		return model.Token{}, fmt.Errorf("token entry %s: initial supply: %w", d.TokenIDHex, err)
	}
	currentSupply, err := decimal.FromText(e.TokenStats.QtyTokenCirculatingSupply, decimals)
	if err != nil {
		return model.Token{}, fmt.Errorf("token entry %s: current supply: %w", d.TokenIDHex, err)
	}

	tok := model.Token{
		ID:                 id,
		Decimals:           decimals,
		Timestamp:          *d.TimestampUnix,
		VersionType:        d.VersionType,
		DocumentURI:        strOrNil(d.DocumentURI),
		Symbol:             strOrNil(d.Symbol),
		Name:               strOrNil(d.Name),
		InitialSupply:      initialSupply,
		CurrentSupply:      currentSupply,
		BlockCreatedHeight: *e.TokenStats.BlockCreated,
	}
	if d.DocumentSha256Hex != nil {
		if h, err := model.HashFromHex(*d.DocumentSha256Hex); err == nil {
			b := [32]byte(h)
			tok.DocumentHash = &b
		}
	}
	return tok, nil
}

// RequestTokens queries the token metadata collection, grounded on
// TokenSource::request_tokens.
func (c *Client) RequestTokens(ctx context.Context, filters ...Filter) ([]model.Token, error) {
	if err := c.slpLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}
	query := buildTokenEnvelope(filters)
	url := c.slpURL + "/q/" + query

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrRemoteRequest, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrRemoteRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrRemoteRequest, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", model.ErrRemoteRequest, resp.StatusCode)
	}

	var result rawTokenResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: decode token response: %v", model.ErrRemoteDecode, err)
	}

	tokens := make([]model.Token, 0, len(result.T))
	for _, e := range result.T {
		tok, err := tokenFromEntry(e)
		if err != nil {
			slog.Warn("skipping token entry", "err", err)
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// Fetch resolves one page of token metadata per id, satisfying
// internal/token.RemoteSource. The upstream token query only accepts a
// single tokenIdHex equality filter (buildTokenEnvelope), so a miss on
// several ids costs one round trip each; TokenRegistry only calls this
// on a cache-and-store miss, which is rare once a token has been seen
// once.
func (c *Client) Fetch(ids []model.Hash) ([]model.Token, error) {
	ctx := context.Background()
	tokens := make([]model.Token, 0, len(ids))
	for _, id := range ids {
		found, err := c.RequestTokens(ctx, TokenID(id))
		if err != nil {
			return nil, fmt.Errorf("fetch token %s: %w", id.Hex(), err)
		}
		tokens = append(tokens, found...)
	}
	return tokens, nil
}
