package decimal

import "math/big"

// Rational wraps math/big.Rat for exact price-per-token arithmetic
// (spec.md §3 TradeOffer.price_per_token).
type Rational struct {
	r *big.Rat
}

// NewRational builds an exact num/den rational.
func NewRational(num, den int64) *Rational {
	return &Rational{r: big.NewRat(num, den)}
}

// RationalFromInt builds a whole-number rational.
func RationalFromInt(v int64) *Rational {
	return &Rational{r: new(big.Rat).SetInt64(v)}
}

// Rat exposes the underlying big.Rat (read-only use expected).
func (r *Rational) Rat() *big.Rat { return r.r }

// Mul returns r * other.
func (r *Rational) Mul(other *Rational) *Rational {
	return &Rational{r: new(big.Rat).Mul(r.r, other.r)}
}

// Quo returns r / other.
func (r *Rational) Quo(other *Rational) *Rational {
	return &Rational{r: new(big.Rat).Quo(r.r, other.r)}
}

// Cmp compares two rationals.
func (r *Rational) Cmp(other *Rational) int { return r.r.Cmp(other.r) }

func (r *Rational) String() string {
	if r.r.IsInt() {
		return r.r.RatString()
	}
	return r.r.FloatString(26)
}
