// README: Geocode memo backed by Redis or process memory.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/redis/go-redis/v9"

	"medquote/internal/types"
)

const geocodeKeyPrefix = "location:geocode:"

// Cache memoizes resolved places by normalized identifier.
type Cache interface {
	Get(ctx context.Context, key string) (types.Point, bool, error)
	Set(ctx context.Context, key string, p types.Point) error
}

type MemoryCache struct {
	mu     sync.RWMutex
	points map[string]types.Point
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{points: make(map[string]types.Point)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (types.Point, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.points[key]
	return p, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, p types.Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.points[key] = p
	return nil
}

// Store keeps one Redis string per place; entries expire after ttl so that
// providers' corrections eventually reach the memo. A zero ttl never expires.
type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewStore(redis *redis.Client, ttl time.Duration) *Store {
	return &Store{redis: redis, ttl: ttl}
}

func (s *Store) Get(ctx context.Context, key string) (types.Point, bool, error) {
	raw, err := s.redis.Get(ctx, geocodeKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.Point{}, false, nil
	}
	if err != nil {
		return types.Point{}, false, err
	}
	var p types.Point
	if err := json.Unmarshal(raw, &p); err != nil {
		return types.Point{}, false, err
	}
	return p, true, nil
}

func (s *Store) Set(ctx context.Context, key string, p types.Point) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, geocodeKeyPrefix+key, raw, s.ttl).Err()
}

// NormalizeKey folds case, punctuation and spacing so that trivially different
// spellings of one place share a cache entry.
func NormalizeKey(place string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(place) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}
