package pihex

// Left-to-right binary exponentiation of 16^n mod k, carried out entirely in
// float64. The BBP left-regime terms need 16^(d-k) mod (8k+j) for exponents
// up to the digit index d, far too large to ever form 16^(d-k) directly.

// Powers of two, powersOfTwo[i] == 2^i. Built once before any worker can
// run and read-only afterwards, so concurrent workers share it safely.
var powersOfTwo [63]float64

func init() {
	powersOfTwo[0] = 1
	for i := 1; i < len(powersOfTwo); i++ {
		powersOfTwo[i] = powersOfTwo[i-1] * 2
	}
}

// Returns 16^n mod k without materializing 16^n, using the left-to-right
// binary square-and-multiply algorithm with base 16. The reduction
// r - trunc(r/k)*k is exact only while intermediate products stay within
// float64's integer-exact range; that requires k*k < 2^53, which holds for
// every BBP modulus 8k+j up to digit index ~1.18e7. Beyond that the result
// silently loses accuracy, it does not fail.
//
// n == 0 returns 1, which is 16^0 mod k for any k > 1.
func expoMod(n, k float64) float64 {
	// Locate the largest power of two <= n.
	bits := 0
	for powersOfTwo[bits] < n {
		bits++
	}
	if powersOfTwo[bits] != n {
		bits--
	}

	r := 1.0
	for i := 0; i <= bits; i++ {
		t := powersOfTwo[bits-i]
		if n >= t {
			r = r * 16.0
			r = r - float64(int64(r/k))*k
			n = n - t
		}
		if bits-i >= 1 {
			r = r * r
			r = r - float64(int64(r/k))*k
		}
	}
	return r
}
