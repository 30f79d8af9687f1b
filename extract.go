package pihex

import (
	"context"
	"math"
)

const hexDigits = "0123456789ABCDEF"

// BBPHexDigits calculates the hexadecimal digit of pi at zero-based
// fractional position d together with the eight digits that follow, using
// the Bailey-Borwein-Plouffe formula:
//
//	pi = sum 1/16^k * (4/(8k+1) - 2/(8k+4) - 1/(8k+5) - 1/(8k+6))
//
// Scaling by 16^d and keeping only fractional parts turns the digit at
// position d+1 into the leading hex digit of the result, without computing
// any preceding digits. The four series are evaluated with the configured
// Dispatcher using the supplied worker count and chunk length.
func BBPHexDigits(ctx context.Context, d int64, workers int, chunkLen int64) (string, error) {
	l := logger.V(1).WithValues("d", d, "workers", workers, "chunkLen", chunkLen)
	l.Info("BBPHexDigits: enter")
	s1, err := seriesSum(ctx, 1, d, workers, chunkLen)
	if err != nil {
		return "", err
	}
	s4, err := seriesSum(ctx, 4, d, workers, chunkLen)
	if err != nil {
		return "", err
	}
	s5, err := seriesSum(ctx, 5, d, workers, chunkLen)
	if err != nil {
		return "", err
	}
	s6, err := seriesSum(ctx, 6, d, workers, chunkLen)
	if err != nil {
		return "", err
	}
	result := 4*s1 - 2*s4 - s5 - s6
	// Bias the value positive before extraction; rounding error can leave
	// the combination slightly negative. The hex conversion only ever
	// looks at the fractional part, so the +1 is otherwise harmless.
	result = result - math.Trunc(result) + 1
	digits := hexFraction(result, 9)
	l.Info("BBPHexDigits: exit", "digits", digits)
	return digits, nil
}

// Converts the fractional part of v into its first n hexadecimal digits by
// repeated multiplication: each round scales the fraction by 16 and peels
// off the integer part as the next digit.
func hexFraction(v float64, n int) string {
	out := make([]byte, n)
	for i := range out {
		v = 16 * (v - math.Floor(v))
		out[i] = hexDigits[int(v)]
	}
	return string(out)
}
