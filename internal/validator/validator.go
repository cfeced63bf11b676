// Package validator implements the Validator component (spec.md §4.5): the
// SLP conservation check that demotes a tx to the Default kind when its
// valid SLP inputs don't cover its declared outputs.
//
// Grounded on
// _examples/original_source/slpdexdb_db/src/tx_history.rs's
// TxHistory::validate_slp.
package validator

import (
	"fmt"

	"github.com/slpdexd/indexer/internal/classifier"
	"github.com/slpdexd/indexer/internal/decimal"
	"github.com/slpdexd/indexer/internal/model"
)

// Validity is one prev-tx's SLP status, as returned by a SLPValidity-mode
// remote query (spec.md §4.6).
type Validity struct {
	Valid       bool
	TokenID     model.Hash
	VersionType int32
	// OutputAmounts[i] is the declared token amount of output i+1, as
	// decimal text — the same convention as classifier.EntrySLP.
	OutputAmounts []string
}

// ValidityOracle resolves the SLP validity of a set of previously-seen
// transactions (RemoteQueryClient.request_slp_validity in spec.md §4.5).
type ValidityOracle interface {
	RequestSLPValidity(prevHashes []model.Hash) (map[model.Hash]Validity, error)
}

// Validate checks SLP conservation for every SLP-kind tx in the batch,
// demoting any tx whose valid declared input sum is less than its output
// sum: kind resets to Default, every output's token value is zeroed, and
// any attached trade offer is dropped. Non-SLP entries and those that
// conserve correctly are left untouched.
func Validate(batch []classifier.Result, oracle ValidityOracle) error {
	prevHashSet := make(map[model.Hash]struct{})
	for _, r := range batch {
		if !r.Tx.Kind.IsSLP {
			continue
		}
		for _, in := range r.Tx.Inputs {
			prevHashSet[in.PrevTx] = struct{}{}
		}
	}
	if len(prevHashSet) == 0 {
		return nil
	}
	prevHashes := make([]model.Hash, 0, len(prevHashSet))
	for h := range prevHashSet {
		prevHashes = append(prevHashes, h)
	}

	validity, err := oracle.RequestSLPValidity(prevHashes)
	if err != nil {
		return fmt.Errorf("slp validity request: %w", err)
	}

	for i := range batch {
		tx := &batch[i].Tx
		if !tx.Kind.IsSLP {
			continue
		}

		decimals := uint8(0)
		if len(tx.Outputs) > 0 {
			decimals = tx.Outputs[0].ValueToken.Decimals()
		}

		outputSum := decimal.Zero(decimals)
		for _, out := range tx.Outputs {
			sum, err := outputSum.Add(out.ValueToken)
			if err != nil {
				return fmt.Errorf("validate %s: %w", tx.Hash, err)
			}
			outputSum = sum
		}

		inputSum := decimal.Zero(decimals)
		for _, in := range tx.Inputs {
			if in.PrevVout <= 0 {
				continue
			}
			v, ok := validity[in.PrevTx]
			if !ok || !v.Valid || v.TokenID != tx.Kind.TokenID || v.VersionType != tx.Kind.TokenType {
				continue
			}
			idx := int(in.PrevVout) - 1
			if idx < 0 || idx >= len(v.OutputAmounts) {
				continue
			}
			amt, err := decimal.FromText(v.OutputAmounts[idx], decimals)
			if err != nil {
				continue // malformed declared amount: treat as non-contributing
			}
			sum, err := inputSum.Add(amt)
			if err != nil {
				continue // decimals mismatch against a differently-scaled declared amount
			}
			inputSum = sum
		}

		if inputSum.Cmp(outputSum) < 0 {
			tx.Kind = model.DefaultTxKind
			for j := range tx.Outputs {
				tx.Outputs[j].ValueToken = decimal.Zero(0)
			}
			batch[i].Offer = nil
		}
	}
	return nil
}
