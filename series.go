package pihex

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultChunkLength is the number of left-regime terms assigned to a
	// worker per dispatch. One term per worker would drown in dispatch
	// overhead; this default keeps workers busy for a useful stretch.
	DefaultChunkLength = 100000

	// The right-regime tail is truncated once a term drops below this
	// threshold, which sits below float64's effective resolution. The
	// terms shrink by a factor of 16 per iteration so the tail is a small
	// constant amount of work regardless of the digit index.
	tailThreshold = 1e-17

	// Hard cap on right-regime iterations; the threshold is reached long
	// before this for any digit index.
	tailSpan = 100
)

// Chunk is one contiguous left-regime work assignment: the sum of the series
// terms for J and D over Length values of k starting at Start. A chunk is
// owned by exactly one worker for its lifetime.
type Chunk struct {
	Start  int64
	Length int64
	J      int64
	D      int64
}

// Sum accumulates the chunk's left-regime terms, reducing the running value
// modulo 1 after every addition. Each term is a proper fraction, so the
// accumulator never leaves [0, 1) and the fractional signal is preserved.
func (c Chunk) Sum() float64 {
	var s float64
	for k := c.Start; k < c.Start+c.Length; k++ {
		denominator := float64(8*k + c.J)
		s = s + expoMod(float64(c.D-k), denominator)/denominator
		s = s - math.Floor(s)
	}
	return s
}

// Dispatcher abstracts the execution substrate that runs one wave of
// mutually independent chunks. Implementations must compute Sum for every
// chunk, write each result into the matching slot of results, and return
// only when all of them have completed. Chunks within a wave share no state,
// so implementations are free to run them in any order or degree of
// parallelism.
type Dispatcher interface {
	Dispatch(ctx context.Context, chunks []Chunk, results []float64) error
}

// goroutineDispatcher runs one goroutine per chunk and joins the wave.
type goroutineDispatcher struct{}

func (goroutineDispatcher) Dispatch(ctx context.Context, chunks []Chunk, results []float64) error {
	g, _ := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			results[i] = chunk.Sum()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to complete dispatch wave: %w", err)
	}
	return nil
}

// Computes Sj(d) mod 1, the fractional part of 16^d times the BBP series for
// numerator constant j. The left regime [0, d) is processed in sequential
// waves of `workers` concurrent chunks of chunkLen terms each; once the
// remaining range is smaller than a full wave it is finished serially, and
// the convergent right-regime tail is summed last.
//
// Within a wave the partial sums are folded into the running total in
// reverse dispatch order. Floating-point addition is not associative, so the
// fold order is part of the contract: keeping it fixed makes repeated runs
// bit-identical regardless of worker scheduling.
func seriesSum(ctx context.Context, j, d int64, workers int, chunkLen int64) (float64, error) {
	if workers < 1 {
		workers = 1
	}
	if chunkLen < 1 {
		chunkLen = DefaultChunkLength
	}
	chunks := make([]Chunk, workers)
	results := make([]float64, workers)
	wave := chunkLen * int64(workers)
	var s float64
	var k int64
	for k < d {
		if k+wave < d {
			if err := ctx.Err(); err != nil {
				return 0, fmt.Errorf("series j=%d interrupted: %w", j, err)
			}
			for i := range chunks {
				chunks[i] = Chunk{Start: k + int64(i)*chunkLen, Length: chunkLen, J: j, D: d}
			}
			if err := dispatcher.Dispatch(ctx, chunks, results); err != nil {
				return 0, fmt.Errorf("series j=%d dispatch failed: %w", j, err)
			}
			k += wave
			for i := workers - 1; i >= 0; i-- {
				s = s + results[i]
				s = s - math.Floor(s)
			}
		} else {
			// Remaining range is smaller than a full wave; finish
			// it without dispatching uneven worker batches.
			denominator := float64(8*k + j)
			s = s + expoMod(float64(d-k), denominator)/denominator
			s = s - math.Floor(s)
			k++
		}
	}
	return tailSum(j, d, s), nil
}

// Folds the right-regime tail (k >= d) into the accumulator. The exponent
// d-k is non-positive so 16^(d-k) is at most 1 and the terms are computed
// directly; they decrease monotonically and summation stops at the
// truncation threshold.
func tailSum(j, d int64, s float64) float64 {
	for k := d; k <= d+tailSpan; k++ {
		term := math.Pow(16, float64(d-k)) / float64(8*k+j)
		if term < tailThreshold {
			break
		}
		s = s + term
		s = s - math.Floor(s)
	}
	return s
}
