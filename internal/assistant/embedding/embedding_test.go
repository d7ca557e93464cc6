package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/community-assistant/server/internal/assistant/model"
	errx "github.com/community-assistant/server/internal/core/error"
)

type memCache struct {
	mu sync.Mutex
	m  map[string][]float32
}

func (c *memCache) Get(_ context.Context, k string) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[k]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (c *memCache) Put(_ context.Context, k string, v []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[k] = v
	return nil
}

// embeddingsServer answers with a vector of {len(text), 1} per input.
func embeddingsServer(t *testing.T, requests *[][]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)
		*requests = append(*requests, req.Input)

		data := make([]map[string]any, len(req.Input))
		for i, in := range req.Input {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": []float32{float32(len(in)), 1}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "model": req.Model, "data": data})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPEmbedderUsesCache(t *testing.T) {
	var requests [][]string
	srv := embeddingsServer(t, &requests)
	cache := &memCache{m: map[string][]float32{}}

	e, err := NewHTTPEmbedder(
		model.LLMConfig{APIKey: "test-key"},
		model.EmbeddingConfig{Model: "text-embedding-3-small", BaseURL: srv.URL, Timeout: 5},
		cache,
	)
	require.NoError(t, err)

	out, err := e.Embed(context.Background(), []string{"ab", "abcd"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2, 1}, {4, 1}}, out)

	out, err = e.Embed(context.Background(), []string{"abcd", "xyz"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{4, 1}, {3, 1}}, out)

	require.Len(t, requests, 2)
	assert.Equal(t, []string{"xyz"}, requests[1])
	assert.Len(t, cache.m, 3)
	assert.Contains(t, cache.m, "text-embedding-3-small:"+ContentHash("xyz"))
}

func TestHTTPEmbedderEmptyInput(t *testing.T) {
	e, err := NewHTTPEmbedder(model.LLMConfig{}, model.EmbeddingConfig{Model: "m"}, nil)
	require.NoError(t, err)
	out, err := e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestHTTPEmbedderRequiresModel(t *testing.T) {
	_, err := NewHTTPEmbedder(model.LLMConfig{}, model.EmbeddingConfig{}, nil)
	assert.Error(t, err)
}

func TestHTTPEmbedderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	e, err := NewHTTPEmbedder(model.LLMConfig{APIKey: "k"}, model.EmbeddingConfig{Model: "m", BaseURL: srv.URL}, nil)
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), []string{"x"})
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}

func TestVectorCodec(t *testing.T) {
	v := []float32{0.25, -1.5, 3e-7}
	got, err := DecodeVector(EncodeVector(v))
	require.NoError(t, err)
	assert.Equal(t, v, got)

	_, err = DecodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestContentHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", ContentHash(""))
	assert.NotEqual(t, ContentHash("a"), ContentHash("b"))
}

func TestRedisCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	c := NewRedisCache(rdb, time.Hour)
	ctx := context.Background()

	_, err := c.Get(ctx, ContentHash("missing"))
	assert.Equal(t, http.StatusNotFound, errx.StatusOf(err))

	h := ContentHash("Alice works at Microsoft")
	require.NoError(t, c.Put(ctx, h, []float32{0.25, -1, 3.5}))
	got, err := c.Get(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -1, 3.5}, got)
	assert.Equal(t, time.Hour, mr.TTL(cacheKeyPrefix+h))
}
