// Package decimal implements exact fixed-point token arithmetic
// (DecimalAmount), arbitrary-precision rational price arithmetic, and the
// Decimal(52,26) codec used to persist both into the relational schema.
//
// Grounded on _examples/original_source/slpdexdb_base (SLPAmount) and
// _examples/original_source/src/convert_numeric.rs (PgNumeric codec).
// No example repo imports a third-party decimal/bignum library; math/big
// is the corpus-idiomatic vehicle (see SPEC_FULL.md §3).
package decimal

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	"github.com/slpdexd/indexer/internal/model"
)

// Amount is a signed arbitrary-precision integer base with an associated
// decimals exponent: value = base * 10^-decimals. All arithmetic is exact.
type Amount struct {
	base     *big.Int
	decimals uint8
}

// New builds an Amount directly from a base integer and decimals.
func New(base *big.Int, decimals uint8) Amount {
	if base == nil {
		base = big.NewInt(0)
	}
	return Amount{base: new(big.Int).Set(base), decimals: decimals}
}

// Zero returns the additive identity at the given decimals.
func Zero(decimals uint8) Amount {
	return Amount{base: big.NewInt(0), decimals: decimals}
}

// FromText parses a decimal text literal ("500.0100") losslessly up to
// `decimals` fractional digits, truncating any further ones.
func FromText(s string, decimals uint8) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, model.ErrNaN
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		intPart = s[:idx]
		fracPart = s[idx+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, c := range intPart {
		if c < '0' || c > '9' {
			return Amount{}, fmt.Errorf("%w: %q", model.ErrNaN, s)
		}
	}
	for _, c := range fracPart {
		if c < '0' || c > '9' {
			return Amount{}, fmt.Errorf("%w: %q", model.ErrNaN, s)
		}
	}
	if len(fracPart) > int(decimals) {
		// Truncate further digits, never round.
		fracPart = fracPart[:decimals]
	} else {
		fracPart = fracPart + strings.Repeat("0", int(decimals)-len(fracPart))
	}

	digits := intPart + fracPart
	base, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Amount{}, fmt.Errorf("%w: %q", model.ErrNaN, s)
	}
	if neg {
		base.Neg(base)
	}
	return Amount{base: base, decimals: decimals}, nil
}

// FromBigEndianU64 decodes exactly 8 big-endian bytes as an unsigned base,
// per spec.md §4.1's from_big_endian_u64.
func FromBigEndianU64(b []byte, decimals uint8) (Amount, error) {
	if len(b) != 8 {
		return Amount{}, fmt.Errorf("%w: expected 8 bytes, got %d", model.ErrNaN, len(b))
	}
	v := binary.BigEndian.Uint64(b)
	return Amount{base: new(big.Int).SetUint64(v), decimals: decimals}, nil
}

// Base returns the underlying integer base (copy-safe).
func (a Amount) Base() *big.Int { return new(big.Int).Set(a.base) }

// Decimals returns the scale exponent.
func (a Amount) Decimals() uint8 { return a.decimals }

// IsZero reports whether the base is zero (regardless of decimals).
func (a Amount) IsZero() bool { return a.base == nil || a.base.Sign() == 0 }

// Neg returns the unary negation.
func (a Amount) Neg() Amount {
	return Amount{base: new(big.Int).Neg(a.base), decimals: a.decimals}
}

// Add requires equal decimals; DecimalsMismatch otherwise.
func (a Amount) Add(b Amount) (Amount, error) {
	if a.decimals != b.decimals {
		return Amount{}, fmt.Errorf("%w: %d vs %d", model.ErrDecimalsMismatch, a.decimals, b.decimals)
	}
	return Amount{base: new(big.Int).Add(a.base, b.base), decimals: a.decimals}, nil
}

// Sub requires equal decimals; DecimalsMismatch otherwise.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.decimals != b.decimals {
		return Amount{}, fmt.Errorf("%w: %d vs %d", model.ErrDecimalsMismatch, a.decimals, b.decimals)
	}
	return Amount{base: new(big.Int).Sub(a.base, b.base), decimals: a.decimals}, nil
}

// Scale multiplies the base by an integer factor, keeping decimals fixed.
func (a Amount) Scale(factor int64) Amount {
	return Amount{base: new(big.Int).Mul(a.base, big.NewInt(factor)), decimals: a.decimals}
}

// Cmp compares two same-decimals amounts; panics on decimals mismatch since
// callers are expected to normalize first (mirrors spec.md's "operators
// between differently scaled values are rejected").
func (a Amount) Cmp(b Amount) int {
	if a.decimals != b.decimals {
		panic(fmt.Sprintf("decimal: Cmp with mismatched decimals %d vs %d", a.decimals, b.decimals))
	}
	return a.base.Cmp(b.base)
}

// Sum folds a slice of same-decimals amounts; returns Zero(decimals) for an
// empty slice.
func Sum(decimals uint8, amounts ...Amount) (Amount, error) {
	acc := Zero(decimals)
	var err error
	for _, a := range amounts {
		acc, err = acc.Add(a)
		if err != nil {
			return Amount{}, err
		}
	}
	return acc, nil
}

// ToText renders the value as a decimal string with exactly `decimals`
// fractional digits (decimals == 0 omits the point).
func (a Amount) ToText() string {
	neg := a.base.Sign() < 0
	abs := new(big.Int).Abs(a.base)
	digits := abs.String()
	d := int(a.decimals)
	if d == 0 {
		if neg && abs.Sign() != 0 {
			return "-" + digits
		}
		return digits
	}
	for len(digits) <= d {
		digits = "0" + digits
	}
	intPart := digits[:len(digits)-d]
	fracPart := digits[len(digits)-d:]
	out := intPart + "." + fracPart
	if neg && abs.Sign() != 0 {
		out = "-" + out
	}
	return out
}

func (a Amount) String() string { return a.ToText() }
