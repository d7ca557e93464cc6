// Package embedding produces text embeddings through an OpenAI-compatible endpoint.
package embedding

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/community-assistant/server/internal/assistant/model"
	errx "github.com/community-assistant/server/internal/core/error"
	logx "github.com/community-assistant/server/pkg/logger"
)

// Embedder turns texts into vectors, one per text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Cache stores embeddings by content hash.
type Cache interface {
	Get(ctx context.Context, contentHash string) ([]float32, error)
	Put(ctx context.Context, contentHash string, embedding []float32) error
}

// HTTPEmbedder calls the embeddings API, consulting the cache first when one is set.
type HTTPEmbedder struct {
	client *openai.Client
	model  string
	cache  Cache
}

// NewHTTPEmbedder uses EmbeddingConfig.BaseURL, falling back to the chat base URL.
func NewHTTPEmbedder(llmCfg model.LLMConfig, cfg model.EmbeddingConfig, cache Cache) (*HTTPEmbedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	config := openai.DefaultConfig(llmCfg.APIKey)
	switch {
	case cfg.BaseURL != "":
		config.BaseURL = cfg.BaseURL
	case llmCfg.BaseURL != "":
		config.BaseURL = llmCfg.BaseURL
	}
	config.HTTPClient = &http.Client{Timeout: timeout}

	return &HTTPEmbedder{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
		cache:  cache,
	}, nil
}

func (h *HTTPEmbedder) Model() string {
	return h.model
}

func (h *HTTPEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, len(texts))
	var (
		missIdx   []int
		missTexts []string
	)
	for i, text := range texts {
		if h.cache != nil {
			if v, err := h.cache.Get(ctx, h.key(text)); err == nil {
				out[i] = v
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	resp, err := h.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: missTexts,
		Model: openai.EmbeddingModel(h.model),
	})
	if err != nil {
		return nil, errx.WrapLLM(fmt.Errorf("create embeddings: %w", err))
	}
	if len(resp.Data) != len(missTexts) {
		return nil, errx.WrapLLM(fmt.Errorf("embeddings API returned %d vectors for %d texts", len(resp.Data), len(missTexts)))
	}

	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(missIdx) {
			return nil, errx.WrapLLM(fmt.Errorf("embeddings API returned index %d out of range", d.Index))
		}
		orig := missIdx[d.Index]
		out[orig] = d.Embedding
		if h.cache != nil {
			if err := h.cache.Put(ctx, h.key(texts[orig]), d.Embedding); err != nil {
				logx.Warn().Err(err).Msg("embedding cache put failed")
			}
		}
	}
	logx.Debug().Int("texts", len(texts)).Int("cached", len(texts)-len(missTexts)).Str("model", h.model).Msg("texts embedded")
	return out, nil
}

// key scopes the content hash by model so switching models never reuses vectors.
func (h *HTTPEmbedder) key(text string) string {
	return h.model + ":" + ContentHash(text)
}
