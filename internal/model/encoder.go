// Package model defines the embedding-model contract and its concrete
// encoders. An encoder maps an ordered batch of texts to one fixed-length
// vector per text, order-preserving; its Name doubles as the model identity
// used for cache and result keys.
package model

import (
	"context"
	"fmt"
	"strings"
)

// Encoder is the external model contract. Name is the backend ("openai",
// "ollama"); Identity pins the exact model and keys caches and results.
type Encoder interface {
	Name() string
	Identity() string
	Encode(ctx context.Context, texts []string, batchSize int) ([][]float32, error)
}

// CheckShape verifies an encoder honored the contract: one non-empty vector
// per input, all the same length.
func CheckShape(texts []string, vectors [][]float32) error {
	if len(vectors) != len(texts) {
		return fmt.Errorf("model: got %d vectors for %d texts", len(vectors), len(texts))
	}
	if len(vectors) == 0 {
		return nil
	}
	dims := len(vectors[0])
	if dims == 0 {
		return fmt.Errorf("model: empty vector at index 0")
	}
	for i, v := range vectors {
		if len(v) != dims {
			return fmt.Errorf("model: vector %d has %d dims, want %d", i, len(v), dims)
		}
	}
	return nil
}

// Registry stores encoders by name.
type Registry struct {
	encoders map[string]Encoder
}

func NewRegistry() *Registry {
	return &Registry{encoders: make(map[string]Encoder)}
}

func (r *Registry) Register(e Encoder) {
	if r == nil || e == nil {
		return
	}
	name := strings.ToLower(strings.TrimSpace(e.Name()))
	if name == "" {
		return
	}
	if r.encoders == nil {
		r.encoders = make(map[string]Encoder)
	}
	r.encoders[name] = e
}

func (r *Registry) Get(name string) (Encoder, bool) {
	if r == nil || r.encoders == nil {
		return nil, false
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, false
	}
	e, ok := r.encoders[name]
	return e, ok
}
