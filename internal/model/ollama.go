package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaEncoder produces embeddings through a local Ollama server.
type OllamaEncoder struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaEncoder(baseURL, model string) *OllamaEncoder {
	u := strings.TrimSpace(baseURL)
	if u == "" {
		u = "http://localhost:11434"
	}
	m := strings.TrimSpace(model)
	if m == "" {
		m = "nomic-embed-text"
	}
	return &OllamaEncoder{
		baseURL: strings.TrimRight(u, "/"),
		model:   m,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *OllamaEncoder) Name() string { return "ollama" }

func (e *OllamaEncoder) Identity() string {
	if e == nil {
		return "ollama"
	}
	return "ollama/" + e.model
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (e *OllamaEncoder) Encode(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if e == nil || e.client == nil {
		return nil, errors.New("model: ollama: nil client")
	}
	if ctx == nil {
		return nil, errors.New("model: ollama: nil context")
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

		vecs, err := e.embedBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}

	if err := CheckShape(texts, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *OllamaEncoder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: batch})
	if err != nil {
		return nil, fmt.Errorf("model: ollama: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("model: ollama: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model: ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("model: ollama: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var parsed ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("model: ollama: decode: %w", err)
	}
	if len(parsed.Embeddings) != len(batch) {
		return nil, fmt.Errorf("model: ollama: got %d embeddings for %d inputs", len(parsed.Embeddings), len(batch))
	}
	return parsed.Embeddings, nil
}
