package pihex

import (
	"math/big"
	"testing"
)

// The floating-point expoMod must agree with exact big-integer modular
// exponentiation for every modulus and exponent within the documented
// integer-exact range.
func TestExpoModAgainstBigIntReference(t *testing.T) {
	base := big.NewInt(16)
	moduli := []int64{2, 3, 5, 9, 12, 17, 41, 257, 999983}
	for _, k := range moduli {
		m := big.NewInt(k)
		for n := int64(0); n <= 64; n++ {
			expected := new(big.Int).Exp(base, big.NewInt(n), m).Int64()
			actual := expoMod(float64(n), float64(k))
			if actual != float64(expected) {
				t.Errorf("expoMod(%d, %d): expected %d received %v", n, k, expected, actual)
			}
		}
	}
}

// Exponents the size of real digit indices must still agree with the exact
// reference; the intermediate values stay within float64's integer range for
// these moduli.
func TestExpoModLargeExponents(t *testing.T) {
	base := big.NewInt(16)
	exponents := []int64{1000, 65535, 65536, 1000003, 9999999}
	moduli := []int64{9, 17, 999983, 80000005}
	for _, k := range moduli {
		m := big.NewInt(k)
		for _, n := range exponents {
			expected := new(big.Int).Exp(base, big.NewInt(n), m).Int64()
			actual := expoMod(float64(n), float64(k))
			if actual != float64(expected) {
				t.Errorf("expoMod(%d, %d): expected %d received %v", n, k, expected, actual)
			}
		}
	}
}

// A zero exponent must return 1 without touching the table scan loop; the
// series code only calls expoMod with n >= 0 and the n == 0 case is the
// first left-regime term at k == d boundary conditions.
func TestExpoModZeroExponent(t *testing.T) {
	for _, k := range []float64{2, 9, 14, 999983} {
		if actual := expoMod(0, k); actual != 1 {
			t.Errorf("expoMod(0, %v): expected 1 received %v", k, actual)
		}
	}
}
