package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis"
	"github.com/memes/pihex/pkg/cache"
)

const testCacheLoopLimit = 10

// The NoopCache should do nothing useful. This test confirms that values can
// appear to be added successfully, but an attempt to recall the value will
// result in an empty string.
func TestNoopCache(t *testing.T) {
	ctx := context.Background()
	noop := cache.NewNoopCache()
	if noop == nil {
		t.Fatal("Noop cache is nil")
	}
	for i := 0; i < testCacheLoopLimit; i++ {
		key := fmt.Sprintf("%d", i)
		actual, err := noop.GetValue(ctx, key)
		if err != nil {
			t.Errorf("GetValue returned an error: %v", err)
		}
		if actual != "" {
			t.Errorf("Index %d: Expected empty string received %s", i, actual)
		}
		if err = noop.SetValue(ctx, key, "243F6A888"); err != nil {
			t.Errorf("Index: %d: SetValue returned an error: %v", i, err)
		}
		actual, err = noop.GetValue(ctx, key)
		if err != nil {
			t.Errorf("GetValue returned an error: %v", err)
		}
		if actual != "" {
			t.Errorf("Index %d: Expected empty string received %s", i, actual)
		}
	}
}

// The RedisCache will use a Redis-like in-memory instance to cache values.
// The test should confirm that a value can be added to the cache and
// recalled successfully.
func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mock, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Error running miniredis: %v", err)
	}
	defer mock.Close()
	redisCache := cache.NewRedisCache(ctx, mock.Addr(),
		cache.WithMaxIdle(2),
		cache.WithIdleTimeout(time.Minute),
	)
	if redisCache == nil {
		t.Fatal("Redis cache is nil")
	}
	for i := 0; i < testCacheLoopLimit; i++ {
		key := fmt.Sprintf("%d", i)
		actual, err := redisCache.GetValue(ctx, key)
		if err != nil {
			t.Errorf("GetValue returned an error: %v", err)
		}
		if actual != "" {
			t.Errorf("Index %d: Expected empty string received %s", i, actual)
		}
		expected := fmt.Sprintf("%09X", i)
		if err = redisCache.SetValue(ctx, key, expected); err != nil {
			t.Errorf("Index: %d: SetValue returned an error: %v", i, err)
		}
		actual, err = redisCache.GetValue(ctx, key)
		if err != nil {
			t.Errorf("GetValue returned an error: %v", err)
		}
		if actual != expected {
			t.Errorf("Index %d: Expected %s received %s", i, expected, actual)
		}
	}
}
