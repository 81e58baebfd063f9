// ABOUTME: Redis-backed cache for single-text query embeddings.
// ABOUTME: Cache errors are logged and fall through to the underlying provider.
package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const cacheKeyPrefix = "bookrec:emb:"

// Cached serves repeated query texts from Redis. Batch calls (catalog builds)
// bypass the cache.
type Cached struct {
	inner  Embedder
	rdb    *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *logrus.Logger
}

// NewCached wraps inner with a Redis cache. ttl <= 0 keeps entries forever.
func NewCached(inner Embedder, rdb *redis.Client, ttl time.Duration, logger *logrus.Logger) *Cached {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cached{inner: inner, rdb: rdb, ttl: ttl, logger: logger}
}

// CacheKey returns the Redis key for text under model.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + model + ":" + hex.EncodeToString(sum[:])
}

// Embed implements Embedder.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) != 1 {
		return c.inner.Embed(ctx, texts)
	}

	key := CacheKey(c.inner.Model(), texts[0])
	// The shared call outlives any single caller; each caller only stops
	// waiting when its own context ends.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		if vec, ok := c.lookup(shared, key); ok {
			return [][]float32{vec}, nil
		}
		vecs, err := c.inner.Embed(shared, texts)
		if err != nil {
			return nil, err
		}
		if err := c.rdb.Set(shared, key, EncodeVector(vecs[0]), c.ttl).Err(); err != nil {
			c.logger.WithError(err).WithField("key", key).Warn("failed to cache query embedding")
		}
		return vecs, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([][]float32), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cached) lookup(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).WithField("key", key).Warn("embedding cache lookup failed")
		}
		return nil, false
	}
	vec, ok := DecodeVector(data)
	if !ok {
		return nil, false
	}
	if d := c.inner.Dimension(); d > 0 && len(vec) != d {
		return nil, false
	}
	return vec, true
}

// Dimension implements Embedder.
func (c *Cached) Dimension() int { return c.inner.Dimension() }

// Model implements Embedder.
func (c *Cached) Model() string { return c.inner.Model() }

// EncodeVector serializes v as little-endian float32 values.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

// DecodeVector is the inverse of EncodeVector.
func DecodeVector(data []byte) ([]float32, bool) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, false
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return v, true
}
