package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avrebrov/store-api/internal/cache"
)

//go:generate mockgen -source=../domain/repo.go -destination=repo_mock_test.go -package=service

type LookupSource string

const (
	SourceCache LookupSource = "cache"
	SourceDB    LookupSource = "db"
)

// LookupStats reports where a read was served from and what it cost; the
// HTTP layer exposes it through Server-Timing and X-* headers.
type LookupStats struct {
	Source  LookupSource
	CacheMs float64
	DBMs    float64
}

func convertToMs(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}

// cacheGet unmarshals a cached entry; a broken entry counts as a miss.
func cacheGet[T any](ctx context.Context, c cache.Cache, key string) (T, bool) {
	var v T
	raw, ok := c.Get(ctx, key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false
	}
	return v, true
}

func cacheSet(ctx context.Context, c cache.Cache, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Set(ctx, key, raw, ttl)
}
