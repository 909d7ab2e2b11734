package cache

import (
	"context"
	"time"
)

// Cache stores JSON-marshaled entities and entity lists. Implementations
// must degrade to a miss on backend failure; an unreachable backend never
// fails a request.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
	DeletePrefix(ctx context.Context, prefix string)
}
