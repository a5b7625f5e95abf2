package cache

import (
	"bytes"
	"context"
	"testing"
)

var benchPayload = bytes.Repeat([]byte(`{"time":1700000000,"icon":"04d","temp":5.2},`), 24)

// BenchmarkInMemoryCache_Get_Hit benchmarks cache Get operation on cache hit.
func BenchmarkInMemoryCache_Get_Hit(b *testing.B) {
	cache := NewInMemoryCache()
	ctx := context.Background()
	_ = cache.Set(ctx, "weatherData", benchPayload)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = cache.Get(ctx, "weatherData")
	}
}

// BenchmarkInMemoryCache_Set benchmarks cache Set operation.
func BenchmarkInMemoryCache_Set(b *testing.B) {
	cache := NewInMemoryCache()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cache.Set(ctx, "weatherData", benchPayload)
	}
}

// BenchmarkFileCache_Set benchmarks the temp-file-and-rename write path.
func BenchmarkFileCache_Set(b *testing.B) {
	cache, err := NewFileCache(b.TempDir())
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cache.Set(ctx, "weatherData", benchPayload)
	}
}

// BenchmarkInMemoryCache_Concurrent benchmarks mixed reads and writes under contention.
func BenchmarkInMemoryCache_Concurrent(b *testing.B) {
	cache := NewInMemoryCache()
	ctx := context.Background()
	_ = cache.Set(ctx, "weatherData", benchPayload)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if i%10 == 0 {
				_ = cache.Set(ctx, "weatherData", benchPayload)
			} else {
				_, _, _ = cache.Get(ctx, "weatherData")
			}
			i++
		}
	})
}
