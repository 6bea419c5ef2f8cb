package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stellarlinkco/embench/internal/config"
)

func TestCheckShape(t *testing.T) {
	texts := []string{"a", "b"}

	if err := CheckShape(texts, [][]float32{{1, 2}, {3, 4}}); err != nil {
		t.Fatalf("valid shape: %v", err)
	}
	if err := CheckShape(texts, [][]float32{{1, 2}}); err == nil {
		t.Fatalf("count mismatch: expected error")
	}
	if err := CheckShape(texts, [][]float32{{1, 2}, {3}}); err == nil {
		t.Fatalf("ragged vectors: expected error")
	}
	if err := CheckShape(texts, [][]float32{{}, {}}); err == nil {
		t.Fatalf("empty vectors: expected error")
	}
	if err := CheckShape(nil, nil); err != nil {
		t.Fatalf("empty input: %v", err)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(NewOllamaEncoder("", ""))

	e, ok := r.Get(" Ollama ")
	if !ok {
		t.Fatalf("missing ollama encoder")
	}
	if e.Identity() != "ollama/nomic-embed-text" {
		t.Fatalf("identity = %q", e.Identity())
	}
	if _, ok := r.Get("absent"); ok {
		t.Fatalf("unexpected hit")
	}
}

func TestOllamaEncoder_Encode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		out := ollamaEmbedResponse{}
		for range req.Input {
			out.Embeddings = append(out.Embeddings, []float32{1, 0, 0})
		}
		json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	e := NewOllamaEncoder(srv.URL, "test-model")
	vecs, err := e.Encode(context.Background(), []string{"a", "b", "c"}, 2)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(vecs) != 3 || len(vecs[0]) != 3 {
		t.Fatalf("vecs = %v", vecs)
	}
}

func TestOllamaEncoder_BadResponses(t *testing.T) {
	{
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer srv.Close()

		e := NewOllamaEncoder(srv.URL, "m")
		if _, err := e.Encode(context.Background(), []string{"a"}, 0); err == nil {
			t.Fatalf("http error: expected error")
		}
	}
	{
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// One embedding short.
			json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{1}}})
		}))
		defer srv.Close()

		e := NewOllamaEncoder(srv.URL, "m")
		if _, err := e.Encode(context.Background(), []string{"a", "b"}, 0); err == nil {
			t.Fatalf("count mismatch: expected error")
		}
	}
}

func TestNewRegistryFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Model.Encoders = map[string]config.EncoderConfig{
		"openai": {APIKey: "sk-test", Model: "text-embedding-3-small"},
		"ollama": {BaseURL: "http://localhost:11434"},
	}

	r, err := NewRegistryFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewRegistryFromConfig: %v", err)
	}
	if _, ok := r.Get("openai"); !ok {
		t.Fatalf("openai missing")
	}
	if _, ok := r.Get("ollama"); !ok {
		t.Fatalf("ollama missing")
	}

	cfg.Model.Encoders["voodoo"] = config.EncoderConfig{}
	if _, err := NewRegistryFromConfig(cfg); err == nil {
		t.Fatalf("unknown backend: expected error")
	}
}

func TestDefaultEncoderFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Model.DefaultEncoder = "ollama"
	cfg.Model.Encoders = map[string]config.EncoderConfig{
		"ollama": {Model: "custom"},
	}

	e, err := DefaultEncoderFromConfig(cfg)
	if err != nil {
		t.Fatalf("DefaultEncoderFromConfig: %v", err)
	}
	if e.Identity() != "ollama/custom" {
		t.Fatalf("identity = %q", e.Identity())
	}

	cfg.Model.DefaultEncoder = "openai"
	// Sole configured encoder still wins.
	if e, err = DefaultEncoderFromConfig(cfg); err != nil || e.Name() != "ollama" {
		t.Fatalf("sole encoder fallback: %v, %v", e, err)
	}

	cfg.Model.Encoders = map[string]config.EncoderConfig{}
	if _, err := DefaultEncoderFromConfig(cfg); err == nil {
		t.Fatalf("no encoders: expected error")
	}
}
