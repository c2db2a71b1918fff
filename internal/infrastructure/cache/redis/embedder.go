package redis

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/kirillkom/research-assistant/internal/core/ports"
)

const cacheKeyPrefix = "research:emb_cache:"

// kvStore is the slice of Store the cache needs.
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type CacheObserver interface {
	ObserveEmbeddingCache(result string)
}

// CachedEmbedder caches query embeddings. Cache failures are logged and the
// inner embedder is used as if the entry were missing.
type CachedEmbedder struct {
	inner    ports.Embedder
	store    kvStore
	ttl      time.Duration
	model    string
	observer CacheObserver
}

// NewCachedEmbedder keys entries by model so switching models never serves
// stale vectors.
func NewCachedEmbedder(inner ports.Embedder, store kvStore, model string, ttl time.Duration, observer CacheObserver) *CachedEmbedder {
	return &CachedEmbedder{
		inner:    inner,
		store:    store,
		ttl:      ttl,
		model:    model,
		observer: observer,
	}
}

// Embed is used for record reindexing and is not cached.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return c.inner.Embed(ctx, texts)
}

func (c *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)

	if vec, ok := c.getFromCache(ctx, key); ok {
		c.observe("hit")
		return vec, nil
	}
	c.observe("miss")

	vec, err := c.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) > 0 {
		c.putToCache(ctx, key, vec)
	}
	return vec, nil
}

func (c *CachedEmbedder) observe(result string) {
	if c.observer != nil {
		c.observer.ObserveEmbeddingCache(result)
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(c.model + "\x00" + text))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) getFromCache(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			slog.Warn("embedding_cache_get_failed", "key", key, "error", err)
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		slog.Warn("embedding_cache_corrupt", "key", key, "error", err)
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) putToCache(ctx context.Context, key string, vec []float32) {
	if err := c.store.SetWithTTL(ctx, key, vectorToBytes(vec), c.ttl); err != nil {
		slog.Warn("embedding_cache_set_failed", "key", key, "error", err)
	}
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
