package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/stellarlinkco/embench/internal/config"
)

// NewRegistryFromConfig builds encoders for every configured backend.
func NewRegistryFromConfig(cfg *config.Config) (*Registry, error) {
	if cfg == nil {
		return nil, errors.New("model: nil config")
	}

	r := NewRegistry()
	for name, ecfg := range cfg.Model.Encoders {
		key := strings.ToLower(strings.TrimSpace(name))
		switch key {
		case "":
			continue
		case "openai":
			r.Register(NewOpenAIEncoder(ecfg.APIKey, ecfg.BaseURL, ecfg.Model))
		case "ollama":
			r.Register(NewOllamaEncoder(ecfg.BaseURL, ecfg.Model))
		default:
			return nil, fmt.Errorf("model: unknown encoder backend %q", name)
		}
	}
	return r, nil
}

// DefaultEncoderFromConfig returns the configured default encoder, or the
// sole configured one when the default is absent.
func DefaultEncoderFromConfig(cfg *config.Config) (Encoder, error) {
	if cfg == nil {
		return nil, errors.New("model: nil config")
	}
	reg, err := NewRegistryFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(cfg.Model.DefaultEncoder)
	if e, ok := reg.Get(name); ok {
		return e, nil
	}
	if len(reg.encoders) == 1 {
		for _, e := range reg.encoders {
			return e, nil
		}
	}

	available := make([]string, 0, len(reg.encoders))
	for k := range reg.encoders {
		available = append(available, k)
	}
	sort.Strings(available)
	return nil, fmt.Errorf("model: default encoder %q not configured (available: %s)", name, strings.Join(available, ", "))
}
