package decimal

import "testing"

func TestRationalToNumericRoundTrip(t *testing.T) {
	r := NewRational(1000, 5) // 200
	n := RationalToNumeric(r, 26)
	back := NumericToRational(n)
	if back.Cmp(r) != 0 {
		t.Errorf("round trip mismatch: got %s want %s", back, r)
	}
}

func TestRationalToNumericFraction(t *testing.T) {
	r := NewRational(1, 3)
	n := RationalToNumeric(r, 6)
	if len(n.Digits) == 0 {
		t.Fatal("expected nonzero digits for 1/3")
	}
	back := NumericToRational(n)
	if back.Cmp(RationalFromInt(0)) == 0 {
		t.Fatal("expected nonzero result")
	}
}

func TestRationalToNumericMultipleFractionGroups(t *testing.T) {
	// 1.23456789 at scale 8 spans two distinct base-10000 fraction groups
	// (2345, 6789) plus an integer group (1); a reversal bug in either list
	// alone nets to the wrong digit order even though each list is
	// individually built correctly.
	r := NewRational(123456789, 100000000)
	n := RationalToNumeric(r, 8)
	back := NumericToRational(n)
	if back.Cmp(r) != 0 {
		t.Errorf("round trip mismatch: got %s want %s", back, r)
	}
}

func TestRationalToNumericNegative(t *testing.T) {
	r := NewRational(-500, 1)
	n := RationalToNumeric(r, 2)
	if !n.Negative {
		t.Error("expected negative flag set")
	}
	back := NumericToRational(n)
	if back.Cmp(r) != 0 {
		t.Errorf("round trip mismatch: got %s want %s", back, r)
	}
}
