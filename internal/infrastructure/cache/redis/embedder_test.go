package redis

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeKV struct {
	data    map[string][]byte
	getErr  error
	setErr  error
	lastTTL time.Duration
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeKV) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.lastTTL = ttl
	f.data[key] = value
	return nil
}

type countingEmbedder struct {
	queries int
	vector  []float32
	err     error
}

func (e *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vector
	}
	return out, nil
}

func (e *countingEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	e.queries++
	if e.err != nil {
		return nil, e.err
	}
	return e.vector, nil
}

type observerFake struct {
	results []string
}

func (o *observerFake) ObserveEmbeddingCache(result string) {
	o.results = append(o.results, result)
}

func TestEmbedQueryCachesVector(t *testing.T) {
	inner := &countingEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	kv := newFakeKV()
	obs := &observerFake{}
	cache := NewCachedEmbedder(inner, kv, "nomic-embed-text", 10*time.Minute, obs)

	for i := 0; i < 2; i++ {
		vec, err := cache.EmbedQuery(context.Background(), "solar robots")
		if err != nil {
			t.Fatalf("EmbedQuery() error = %v", err)
		}
		if len(vec) != 3 || vec[1] != 0.2 {
			t.Fatalf("unexpected vector %v", vec)
		}
	}
	if inner.queries != 1 {
		t.Fatalf("expected inner embedder called once, got %d", inner.queries)
	}
	if len(obs.results) != 2 || obs.results[0] != "miss" || obs.results[1] != "hit" {
		t.Fatalf("unexpected cache observations %v", obs.results)
	}
	if kv.lastTTL != 10*time.Minute {
		t.Fatalf("expected ttl to be passed through, got %s", kv.lastTTL)
	}
}

func TestEmbedQueryKeysByModel(t *testing.T) {
	kv := newFakeKV()
	first := NewCachedEmbedder(&countingEmbedder{vector: []float32{1}}, kv, "model-a", 0, nil)
	second := NewCachedEmbedder(&countingEmbedder{vector: []float32{2}}, kv, "model-b", 0, nil)

	if _, err := first.EmbedQuery(context.Background(), "q"); err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	vec, err := second.EmbedQuery(context.Background(), "q")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if vec[0] != 2 {
		t.Fatalf("expected model-b vector, got %v", vec)
	}
}

func TestEmbedQueryIgnoresCacheFailures(t *testing.T) {
	inner := &countingEmbedder{vector: []float32{0.5}}
	kv := newFakeKV()
	kv.getErr = errors.New("redis down")
	kv.setErr = errors.New("redis down")
	cache := NewCachedEmbedder(inner, kv, "m", time.Minute, nil)

	vec, err := cache.EmbedQuery(context.Background(), "q")
	if err != nil {
		t.Fatalf("expected cache failure to be ignored, got %v", err)
	}
	if len(vec) != 1 || inner.queries != 1 {
		t.Fatalf("expected inner embedder result, got %v", vec)
	}
}

func TestEmbedQueryPropagatesInnerError(t *testing.T) {
	kv := newFakeKV()
	cache := NewCachedEmbedder(&countingEmbedder{err: errors.New("provider down")}, kv, "m", time.Minute, nil)

	if _, err := cache.EmbedQuery(context.Background(), "q"); err == nil {
		t.Fatalf("expected error")
	}
	if len(kv.data) != 0 {
		t.Fatalf("failed embeddings must not be cached")
	}
}

func TestBytesToVectorRejectsTruncatedData(t *testing.T) {
	if _, err := bytesToVector([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error")
	}
	vec, err := bytesToVector(vectorToBytes([]float32{0.25, -1}))
	if err != nil || vec[0] != 0.25 || vec[1] != -1 {
		t.Fatalf("unexpected round trip %v, %v", vec, err)
	}
}
