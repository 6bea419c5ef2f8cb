// Package task defines benchmark task descriptors and their registry.
package task

import (
	"fmt"
	"strings"
)

// Type tags the evaluation procedure a task uses.
type Type string

const (
	Retrieval          Type = "retrieval"
	Classification     Type = "classification"
	Clustering         Type = "clustering"
	STS                Type = "sts"
	Reranking          Type = "reranking"
	PairClassification Type = "pair_classification"
	BitextMining       Type = "bitext_mining"
	Summarization      Type = "summarization"
)

// Types lists every supported task type in a stable order.
func Types() []Type {
	return []Type{
		Retrieval,
		Classification,
		Clustering,
		STS,
		Reranking,
		PairClassification,
		BitextMining,
		Summarization,
	}
}

// ParseType validates a task-type tag.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Types() {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("task: unsupported task type %q", s)
}

// DatasetRef pins the exact dataset content a task evaluates on.
type DatasetRef struct {
	Path     string `yaml:"path"`
	Revision string `yaml:"revision"`
}

// Descriptor is the immutable metadata for one benchmark task. Type selects
// the evaluator variant; Dataset.Revision pins data content so results stay
// reproducible.
type Descriptor struct {
	Name      string     `yaml:"name"`
	Type      Type       `yaml:"type"`
	Dataset   DatasetRef `yaml:"dataset"`
	Languages []string   `yaml:"languages,omitempty"`
	Metrics   []string   `yaml:"metrics,omitempty"`
	Splits    []string   `yaml:"splits,omitempty"`
	MainScore string     `yaml:"main_score"`
	MainSplit string     `yaml:"main_split,omitempty"`

	// Few-shot classification settings; zero values take the defaults.
	NExperiments    int `yaml:"n_experiments,omitempty"`
	SamplesPerLabel int `yaml:"samples_per_label,omitempty"`
	KNN             int `yaml:"knn,omitempty"`
}

// Validate reports the first malformed or missing field. Validation failures
// are permanent configuration errors, never retried.
func (d *Descriptor) Validate() error {
	if d == nil {
		return fmt.Errorf("task: nil descriptor")
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("task: descriptor missing name")
	}
	if _, err := ParseType(string(d.Type)); err != nil {
		return fmt.Errorf("task %q: %w", d.Name, err)
	}
	if strings.TrimSpace(d.Dataset.Path) == "" {
		return fmt.Errorf("task %q: missing dataset path", d.Name)
	}
	if strings.TrimSpace(d.Dataset.Revision) == "" {
		return fmt.Errorf("task %q: missing dataset revision", d.Name)
	}
	if strings.TrimSpace(d.MainScore) == "" {
		return fmt.Errorf("task %q: missing main score", d.Name)
	}
	return nil
}

// EvalSplit returns the split the main score is read from, "test" when
// unset.
func (d *Descriptor) EvalSplit() string {
	if d == nil {
		return "test"
	}
	if s := strings.TrimSpace(d.MainSplit); s != "" {
		return s
	}
	return "test"
}

// EvalSplits returns the declared splits, defaulting to the eval split.
func (d *Descriptor) EvalSplits() []string {
	if d == nil {
		return nil
	}
	if len(d.Splits) > 0 {
		return d.Splits
	}
	return []string{d.EvalSplit()}
}
