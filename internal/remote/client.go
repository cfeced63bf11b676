package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/slpdexd/indexer/internal/classifier"
	"github.com/slpdexd/indexer/internal/model"
	"github.com/slpdexd/indexer/internal/validator"
)

// Client issues base64(JSON) queries against the two upstream bitdb-family
// endpoints (grounded on _examples/original_source/slpdexdb_db/src/tx_source.rs's
// TxSource, and on the teacher's per-provider HTTP+rate-limiter shape in
// internal/scanner/btc_blockstream.go).
type Client struct {
	httpClient *http.Client
	slpURL     string
	bchURL     string
	slpLimiter *rate.Limiter
	bchLimiter *rate.Limiter
}

// New constructs a Client. rps is the per-endpoint request rate.
func New(httpClient *http.Client, slpURL, bchURL string, rps int) *Client {
	return &Client{
		httpClient: httpClient,
		slpURL:     slpURL,
		bchURL:     bchURL,
		slpLimiter: rate.NewLimiter(rate.Limit(rps), 1),
		bchLimiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type envelope struct {
	V int         `json:"v"`
	Q queryBody   `json:"q"`
	R *resultSpec `json:"r,omitempty"`
}

type queryBody struct {
	DB   []string       `json:"db"`
	Find map[string]any `json:"find"`
	Sort map[string]any `json:"sort,omitempty"`
}

type resultSpec struct {
	F string `json:"f"`
}

func buildEnvelope(endpoint Endpoint, confirmedness Confirmedness, filters []Filter) string {
	c := newQueryCtx(endpoint, filters)
	env := envelope{
		V: 3,
		Q: queryBody{
			DB:   confirmedness.dbSet(),
			Find: map[string]any{"$and": c.conditions()},
			Sort: c.sort(),
		},
	}
	body, _ := json.Marshal(env)
	return base64.StdEncoding.EncodeToString(body)
}

// rawStackItem decodes the untagged StackItem union: either a base64
// string push, an {"op": N} bare opcode, or absent/null.
type rawStackItem struct {
	str   string
	op    int32
	isOp  bool
	isStr bool
}

func (s *rawStackItem) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		s.str, s.isStr = str, true
		return nil
	}
	var opObj struct {
		Op int32 `json:"op"`
	}
	if err := json.Unmarshal(data, &opObj); err == nil {
		s.op, s.isOp = opObj.Op, true
		return nil
	}
	return nil // Undefined: leave zero value
}

func (s rawStackItem) bytes() []byte {
	if !s.isStr {
		return nil
	}
	b, err := base64.StdEncoding.DecodeString(s.str)
	if err != nil {
		return nil
	}
	return b
}

func (s rawStackItem) isOpReturn() bool {
	return s.isOp && s.op == 0x6a
}

type rawBlk struct {
	T uint64 `json:"t"`
	I int32  `json:"i"`
}

type rawTx struct {
	H string `json:"h"`
}

type rawInputEdge struct {
	A *string `json:"a"`
	H string  `json:"h"`
	I int32   `json:"i"`
}

type rawInput struct {
	E  rawInputEdge `json:"e"`
	B0 rawStackItem `json:"b0"`
	B1 rawStackItem `json:"b1"`
	B2 rawStackItem `json:"b2"`
	B3 rawStackItem `json:"b3"`
	B4 rawStackItem `json:"b4"`
}

type rawOutputEdge struct {
	V uint64  `json:"v"`
	A *string `json:"a"`
}

type rawOutput struct {
	E  rawOutputEdge `json:"e"`
	B0 rawStackItem  `json:"b0"`
}

type rawSLPOutput struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type rawSLPDetail struct {
	Decimals        int32          `json:"decimals"`
	TokenIDHex      string         `json:"tokenIdHex"`
	TransactionType string         `json:"transactionType"`
	VersionType     int32          `json:"versionType"`
	Outputs         []rawSLPOutput `json:"outputs"`
}

type rawSLP struct {
	Valid  bool         `json:"valid"`
	Detail rawSLPDetail `json:"detail"`
}

type rawEntry struct {
	Blk     *rawBlk     `json:"blk"`
	Tx      rawTx       `json:"tx"`
	Inputs  []rawInput  `json:"in"`
	Outputs []rawOutput `json:"out"`
	SLP     *rawSLP     `json:"slp"`
}

type rawResult struct {
	U []rawEntry `json:"u"`
	C []rawEntry `json:"c"`
}

func toEntry(r rawEntry) classifier.Entry {
	e := classifier.Entry{TxHash: r.Tx.H}
	if r.Blk != nil {
		e.Blk = &classifier.EntryBlk{Timestamp: int64(r.Blk.T), Height: r.Blk.I}
	}
	e.Inputs = make([]classifier.EntryInput, len(r.Inputs))
	for i, in := range r.Inputs {
		stack := make([][]byte, 0, 5)
		for _, item := range []rawStackItem{in.B0, in.B1, in.B2, in.B3, in.B4} {
			if b := item.bytes(); b != nil {
				stack = append(stack, b)
			}
		}
		e.Inputs[i] = classifier.EntryInput{
			Address:    in.E.A,
			PrevTxHash: in.E.H,
			PrevVout:   in.E.I,
			IsOpReturn: in.B0.isOpReturn(),
			Stack:      stack,
		}
	}
	e.Outputs = make([]classifier.EntryOutput, len(r.Outputs))
	for i, out := range r.Outputs {
		e.Outputs[i] = classifier.EntryOutput{
			ValueSats:  out.E.V,
			Address:    out.E.A,
			IsOpReturn: out.B0.isOpReturn(),
		}
	}
	if r.SLP != nil {
		amounts := make([]string, len(r.SLP.Detail.Outputs))
		for i, o := range r.SLP.Detail.Outputs {
			amounts[i] = o.Amount
		}
		e.SLP = &classifier.EntrySLP{
			Decimals:        r.SLP.Detail.Decimals,
			TokenIDHex:      r.SLP.Detail.TokenIDHex,
			TransactionType: r.SLP.Detail.TransactionType,
			VersionType:     r.SLP.Detail.VersionType,
			OutputAmounts:   amounts,
		}
	}
	return e
}

// RequestTxs queries one endpoint and returns the entries from whichever
// of "u"/"c" the requested Confirmedness selects, concatenated in
// unconfirmed-then-confirmed order.
func (c *Client) RequestTxs(ctx context.Context, endpoint Endpoint, confirmedness Confirmedness, filters ...Filter) ([]classifier.Entry, error) {
	limiter := c.slpLimiter
	baseURL := c.slpURL
	if endpoint == EndpointBCH {
		limiter = c.bchLimiter
		baseURL = c.bchURL
	}
	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	query := buildEnvelope(endpoint, confirmedness, filters)
	url := baseURL + "/q/" + query

	slog.Debug("remote query request", "endpoint", endpoint, "url", url)

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

	var result rawResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", model.ErrRemoteDecode, err)
	}

	entries := make([]classifier.Entry, 0, len(result.U)+len(result.C))
	for _, r := range result.U {
		entries = append(entries, toEntry(r))
	}
	for _, r := range result.C {
		entries = append(entries, toEntry(r))
	}
	return entries, nil
}

type rawValidityEntry struct {
	Tx  rawTx  `json:"tx"`
	SLP rawSLP `json:"slp"`
}

type rawValidityResult struct {
	U []rawValidityEntry `json:"u"`
	C []rawValidityEntry `json:"c"`
}

// RequestSLPValidity implements validator.ValidityOracle: an slpdb query
// scoped to the given prev-tx hashes, consuming both confirmed and
// unconfirmed results (spec.md §4.5 step 2). The envelope carries no
// {tx, slp} projection, so the server returns full documents; only their
// tx and slp fields are decoded.
func (c *Client) RequestSLPValidity(prevHashes []model.Hash) (map[model.Hash]validator.Validity, error) {
	ctx := context.Background()
	filters := make([]Filter, 0, len(prevHashes))
	for _, h := range prevHashes {
		filters = append(filters, TxHash(h))
	}

	if err := c.slpLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}
	query := buildEnvelope(EndpointSLP, Both, filters)
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

	var result rawValidityResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: decode validity response: %v", model.ErrRemoteDecode, err)
	}

	out := make(map[model.Hash]validator.Validity)
	consume := func(entries []rawValidityEntry) error {
		for _, e := range entries {
			h, err := model.HashFromHex(e.Tx.H)
			if err != nil {
				return fmt.Errorf("%w: %v", model.ErrRemoteRequest, err)
			}
			tokenID, err := model.HashFromHex(e.SLP.Detail.TokenIDHex)
			if err != nil {
				return fmt.Errorf("%w: %v", model.ErrRemoteRequest, err)
			}
			amounts := make([]string, len(e.SLP.Detail.Outputs))
			for i, o := range e.SLP.Detail.Outputs {
				amounts[i] = o.Amount
			}
			out[h] = validator.Validity{
				Valid:         e.SLP.Valid,
				TokenID:       tokenID,
				VersionType:   e.SLP.Detail.VersionType,
				OutputAmounts: amounts,
			}
		}
		return nil
	}
	if err := consume(result.U); err != nil {
		return nil, err
	}
	if err := consume(result.C); err != nil {
		return nil, err
	}
	return out, nil
}
