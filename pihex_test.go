package pihex

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis"
	"github.com/memes/pihex/pkg/cache"
)

func TestHexDigits_WithNoopCache(t *testing.T) {
	ctx := context.Background()
	SetCache(cache.NewNoopCache())
	for d := int64(0); d < 12; d++ {
		expected := piHexFraction[d : d+9]
		actual, err := HexDigits(ctx, d)
		if err != nil {
			t.Fatalf("Error calling HexDigits: %v", err)
		}
		if actual != expected {
			t.Errorf("Checking index %d: expected %s received %s", d, expected, actual)
		}
	}
}

func TestHexDigits_WithRedisCache(t *testing.T) {
	ctx := context.Background()
	mock, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Error running miniredis: %v", err)
	}
	defer mock.Close()
	redisCache := cache.NewRedisCache(ctx, mock.Addr())
	if redisCache == nil {
		t.Fatal("Redis cache is nil")
	}
	SetCache(redisCache)
	defer SetCache(cache.NewNoopCache())
	for d := int64(0); d < 12; d++ {
		expected := piHexFraction[d : d+9]
		actual, err := HexDigits(ctx, d)
		if err != nil {
			t.Fatalf("Error calling HexDigits: %v", err)
		}
		if actual != expected {
			t.Errorf("Checking index %d: expected %s received %s", d, expected, actual)
		}
		// The calculated block must have been written through to Redis.
		cached, err := mock.Get(strconv.FormatInt(d, 10))
		if err != nil {
			t.Errorf("Index %d: error reading cached value: %v", d, err)
		}
		if cached != expected {
			t.Errorf("Index %d: expected cached %s received %s", d, expected, cached)
		}
		// A second call is served from the cache and must agree.
		again, err := HexDigits(ctx, d)
		if err != nil {
			t.Fatalf("Error calling HexDigits: %v", err)
		}
		if again != expected {
			t.Errorf("Checking cached index %d: expected %s received %s", d, expected, again)
		}
	}
}

func TestSetWorkersIgnoresNonPositive(t *testing.T) {
	before := workers
	SetWorkers(0)
	if workers != before {
		t.Errorf("SetWorkers(0): expected %d received %d", before, workers)
	}
	SetWorkers(-4)
	if workers != before {
		t.Errorf("SetWorkers(-4): expected %d received %d", before, workers)
	}
	SetWorkers(2)
	if workers != 2 {
		t.Errorf("SetWorkers(2): expected 2 received %d", workers)
	}
	SetWorkers(before)
}

func TestSetChunkLengthIgnoresNonPositive(t *testing.T) {
	before := chunkLength
	SetChunkLength(0)
	if chunkLength != before {
		t.Errorf("SetChunkLength(0): expected %d received %d", before, chunkLength)
	}
	SetChunkLength(512)
	if chunkLength != 512 {
		t.Errorf("SetChunkLength(512): expected 512 received %d", chunkLength)
	}
	SetChunkLength(before)
}
