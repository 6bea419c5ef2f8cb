package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEncoder produces embeddings through the OpenAI embeddings API.
type OpenAIEncoder struct {
	client *openai.Client
	model  string
}

func NewOpenAIEncoder(apiKey, baseURL, model string) *OpenAIEncoder {
	cfg := openai.DefaultConfig(strings.TrimSpace(apiKey))
	if v := strings.TrimSpace(baseURL); v != "" {
		cfg.BaseURL = strings.TrimRight(v, "/")
	}

	m := strings.TrimSpace(model)
	if m == "" {
		m = string(openai.SmallEmbedding3)
	}

	return &OpenAIEncoder{
		client: openai.NewClientWithConfig(cfg),
		model:  m,
	}
}

func (e *OpenAIEncoder) Name() string { return "openai" }

// Identity pins the exact embedding model for cache and result keys.
func (e *OpenAIEncoder) Identity() string {
	if e == nil {
		return "openai"
	}
	return "openai/" + e.model
}

func (e *OpenAIEncoder) Encode(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if e == nil || e.client == nil {
		return nil, errors.New("model: openai: nil client")
	}
	if ctx == nil {
		return nil, errors.New("model: openai: nil context")
	}
	if batchSize <= 0 {
		batchSize = 32
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(e.model),
			Input: batch,
		})
		if err != nil {
			return nil, fmt.Errorf("model: openai: embeddings: %w", err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("model: openai: got %d embeddings for %d inputs", len(resp.Data), len(batch))
		}

		// The API reports an index per embedding; order by it rather than
		// trusting response order.
		vecs := make([][]float32, len(batch))
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(batch) {
				return nil, fmt.Errorf("model: openai: embedding index %d out of range", d.Index)
			}
			vecs[d.Index] = d.Embedding
		}
		out = append(out, vecs...)
	}

	if err := CheckShape(texts, out); err != nil {
		return nil, err
	}
	return out, nil
}
