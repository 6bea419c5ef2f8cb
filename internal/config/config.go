package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	Model   ModelConfig   `yaml:"model"`
	Data    DataConfig    `yaml:"data"`
	Cache   CacheConfig   `yaml:"cache"`
	Results ResultsConfig `yaml:"results"`
	Run     RunConfig     `yaml:"run"`
}

type ModelConfig struct {
	DefaultEncoder string                   `yaml:"default_encoder,omitempty"`
	Encoders       map[string]EncoderConfig `yaml:"encoders,omitempty"`
}

type EncoderConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

type DataConfig struct {
	Root      string            `yaml:"root,omitempty"`       // dataset source root
	CacheDir  string            `yaml:"cache_dir,omitempty"`  // raw content cache
	TaskDir   string            `yaml:"task_dir,omitempty"`   // task descriptor YAML files
	Retries   int               `yaml:"retries,omitempty"`    // transient fetch attempts
	BackoffMs int               `yaml:"backoff_ms,omitempty"` // initial backoff
	Revisions map[string]string `yaml:"revisions,omitempty"`  // task name -> pinned revision override
}

type CacheConfig struct {
	Path string `yaml:"path,omitempty"` // embedding cache SQLite path, "" = memory only
}

type ResultsConfig struct {
	Type string `yaml:"type,omitempty"` // "sqlite" or "memory"
	Path string `yaml:"path,omitempty"`
}

type RunConfig struct {
	Seed          int64 `yaml:"seed,omitempty"`
	Concurrency   int   `yaml:"concurrency,omitempty"`
	BatchSize     int   `yaml:"batch_size,omitempty"`
	StopOnFailure bool  `yaml:"stop_on_failure,omitempty"`
}

func Load(path string) (*Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	applyEnv(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Model.Encoders == nil {
		cfg.Model.Encoders = make(map[string]EncoderConfig)
	}
	if strings.TrimSpace(cfg.Model.DefaultEncoder) == "" {
		cfg.Model.DefaultEncoder = "openai"
	}
	if strings.TrimSpace(cfg.Data.Root) == "" {
		cfg.Data.Root = "data"
	}
	if strings.TrimSpace(cfg.Data.TaskDir) == "" {
		cfg.Data.TaskDir = "tasks"
	}
	if strings.TrimSpace(cfg.Data.CacheDir) == "" {
		cfg.Data.CacheDir = "data/cache"
	}
	if cfg.Data.Retries <= 0 {
		cfg.Data.Retries = 3
	}
	if cfg.Data.BackoffMs <= 0 {
		cfg.Data.BackoffMs = 200
	}
	if strings.TrimSpace(cfg.Results.Type) == "" {
		cfg.Results.Type = "sqlite"
	}
	if strings.TrimSpace(cfg.Results.Path) == "" {
		cfg.Results.Path = "data/results.db"
	}
	if cfg.Run.Seed == 0 {
		cfg.Run.Seed = 42
	}
	if cfg.Run.Concurrency <= 0 {
		cfg.Run.Concurrency = 1
	}
	if cfg.Run.BatchSize <= 0 {
		cfg.Run.BatchSize = 32
	}
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		e := cfg.Model.Encoders["openai"]
		e.APIKey = v
		cfg.Model.Encoders["openai"] = e
	}
	if v := strings.TrimSpace(os.Getenv("EMBENCH_CACHE_DIR")); v != "" {
		cfg.Data.CacheDir = v
	}
	if v := strings.TrimSpace(os.Getenv("EMBENCH_RESULTS_DB")); v != "" {
		cfg.Results.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("EMBENCH_RETRIES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Data.Retries = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("EMBENCH_SEED")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Run.Seed = n
		}
	}
}
