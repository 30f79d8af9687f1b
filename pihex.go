// Package pihex computes hexadecimal digits of pi at arbitrary positions
// using the Bailey-Borwein-Plouffe digit-extraction formula, parallelized
// across independent workers. The digit at a position is computed directly;
// no preceding digits are needed.
package pihex

import (
	"context"
	"runtime"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/memes/pihex/pkg/cache"
)

var (
	// Logger to use in this package; default is a no-op logger.
	logger = logr.Discard()
	// Cache implementation to use; default is a no-op cache.
	digitCache cache.Cache = cache.NewNoopCache()
	// Dispatcher that executes waves of chunk computations; default runs
	// one goroutine per chunk.
	dispatcher Dispatcher = goroutineDispatcher{}
	// Number of concurrent workers per wave; default is the
	// hardware-reported concurrency.
	workers = runtime.NumCPU()
	// Number of series terms per worker chunk.
	chunkLength = int64(DefaultChunkLength)
)

// Change the logger instance used by this package.
func SetLogger(l logr.Logger) {
	logger = l
}

// Change the Cache implementation used by this package.
func SetCache(c cache.Cache) {
	if c != nil {
		digitCache = c
	}
}

// Change the Dispatcher implementation used by this package. This is the
// hook for alternative execution backends; the replacement must honor the
// Dispatcher contract before any computation starts.
func SetDispatcher(d Dispatcher) {
	if d != nil {
		dispatcher = d
	}
}

// Change the number of concurrent workers per wave. Values below one are
// ignored.
func SetWorkers(n int) {
	if n > 0 {
		workers = n
	}
}

// Change the number of series terms assigned to each worker chunk. Values
// below one are ignored.
func SetChunkLength(n int64) {
	if n > 0 {
		chunkLength = n
	}
}

// HexDigits returns the hexadecimal digit of pi at zero-based fractional
// position d and the eight digits that follow, consulting the configured
// cache before calculating. Calculated values are written back to the cache
// keyed by the decimal digit index.
func HexDigits(ctx context.Context, d int64) (string, error) {
	l := logger.V(1).WithValues("d", d)
	l.Info("HexDigits: enter")
	key := strconv.FormatInt(d, 10)
	digits, err := digitCache.GetValue(ctx, key)
	if err != nil {
		return "", err
	}
	if digits == "" {
		digits, err = BBPHexDigits(ctx, d, workers, chunkLength)
		if err != nil {
			return "", err
		}
		if err := digitCache.SetValue(ctx, key, digits); err != nil {
			return "", err
		}
	}
	l.Info("HexDigits: exit", "digits", digits)
	return digits, nil
}
