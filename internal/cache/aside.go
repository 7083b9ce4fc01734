package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"tribune/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Aside implements the cache-aside pattern. On a hit the cached JSON is
// unmarshaled into dest. On a miss (or when Redis is unavailable) fetch runs
// and its result is cached best-effort; fetch must leave the result in dest.
func Aside(ctx context.Context, key string, dest interface{}, ttl time.Duration, fetch func() error) error {
	class := keyClass(key)

	if client != nil {
		raw, err := client.Get(ctx, key).Result()
		if err == nil {
			if unmarshalErr := json.Unmarshal([]byte(raw), dest); unmarshalErr == nil {
				observability.CacheRequests.WithLabelValues(class, "hit").Inc()
				return nil
			}
			// Corrupt entry, drop it and fall through to fetch
			client.Del(ctx, key)
		} else if !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues("get").Inc()
		}
	}

	observability.CacheRequests.WithLabelValues(class, "miss").Inc()

	if err := fetch(); err != nil {
		return err
	}

	if client != nil {
		if raw, err := json.Marshal(dest); err == nil {
			client.Set(ctx, key, raw, ttl)
		}
	}

	return nil
}

func keyClass(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
