package decimal

import "math/big"

// Numeric is the base-10000-digit-group encoding Postgres' NUMERIC type
// (and this store's persisted columns) uses on the wire: a sign, a weight
// (the power-of-10000 of the first digit group), and the digit groups
// themselves (each 0..9999), trailing/leading zero groups stripped.
//
// Grounded on _examples/original_source/src/convert_numeric.rs
// (i128_to_pg_numeric / pg_numeric_to_rational / rational_to_pg_numeric).
type Numeric struct {
	Negative bool
	Weight   int16
	Digits   []int16
	Scale    uint16
}

const numericBase = 10000

// RationalToNumeric encodes a Rational as a Numeric, emitting at most
// `scale` base-10000 fraction digit groups (4*scale decimal digits) and
// stripping leading/trailing zero digit-groups. The remainder past the last
// emitted group is truncated; it is not rounded. Mirrors
// rational_to_pg_numeric's loop, including its "stop once the fractional
// remainder hits zero" early-out.
func RationalToNumeric(r *Rational, scale uint16) Numeric {
	v := r.Rat()
	neg := v.Sign() < 0
	absV := new(big.Rat).Abs(v)

	num := new(big.Int).Set(absV.Num())
	den := new(big.Int).Set(absV.Denom())
	trunc := new(big.Int).Quo(num, den)
	fractNum := new(big.Int).Mod(num, den)
	fract := new(big.Rat).SetFrac(fractNum, den)

	var fracDigits []int16
	tenThousand := big.NewInt(numericBase)
	for i := uint16(0); i < scale; i++ {
		fract.Mul(fract, new(big.Rat).SetInt(tenThousand))
		fn := new(big.Int).Set(fract.Num())
		fd := new(big.Int).Set(fract.Denom())
		digit := new(big.Int).Quo(fn, fd)
		rem := new(big.Int).Mod(fn, fd)
		fract = new(big.Rat).SetFrac(rem, fd)
		fracDigits = append(fracDigits, int16(digit.Int64()))
		if fract.Sign() == 0 {
			break
		}
	}
	// fracDigits is produced one digit group at a time starting immediately
	// after the decimal point (most significant fractional group first), so
	// it is already in the left-to-right order digits needs — unlike
	// preDigits below, it must not be reversed.

	var preDigits []int16
	nPre := 0
	t := new(big.Int).Set(trunc)
	for t.Sign() > 0 {
		nPre++
		rem := new(big.Int)
		t.QuoRem(t, tenThousand, rem)
		preDigits = append(preDigits, int16(rem.Int64()))
	}
	for i, j := 0, len(preDigits)-1; i < j; i, j = i+1, j-1 {
		preDigits[i], preDigits[j] = preDigits[j], preDigits[i]
	}

	digits := append(preDigits, fracDigits...)

	precedingZeros := 0
	for precedingZeros < len(digits) && digits[precedingZeros] == 0 {
		precedingZeros++
	}
	trailingZeros := 0
	for trailingZeros < len(digits)-precedingZeros && digits[len(digits)-1-trailingZeros] == 0 {
		trailingZeros++
	}

	weight := int16(-1)
	if nPre != 0 {
		weight = int16(nPre - 1)
	}
	weight -= int16(precedingZeros)

	var stripped []int16
	if precedingZeros+trailingZeros < len(digits) {
		stripped = append(stripped, digits[precedingZeros:len(digits)-trailingZeros]...)
	}

	return Numeric{Negative: neg && len(stripped) > 0, Weight: weight, Digits: stripped, Scale: scale}
}

// NumericToRational decodes a Numeric into an exact Rational. Mirrors
// pg_numeric_to_rational.
func NumericToRational(n Numeric) *Rational {
	result := new(big.Int)
	for _, d := range n.Digits {
		result.Mul(result, big.NewInt(numericBase))
		result.Add(result, big.NewInt(int64(d)))
	}
	if n.Negative {
		result.Neg(result)
	}
	count := int32(len(n.Digits))
	correctionExp := 4 * (int32(n.Weight) - count + 1)
	rat := new(big.Rat).SetInt(result)
	if correctionExp != 0 {
		pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(absInt32(correctionExp))), nil)
		if correctionExp > 0 {
			rat.Mul(rat, new(big.Rat).SetInt(pow))
		} else {
			rat.Quo(rat, new(big.Rat).SetInt(pow))
		}
	}
	return &Rational{r: rat}
}

func absInt32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
