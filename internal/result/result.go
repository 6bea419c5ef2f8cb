// Package result turns per-split metric reports into the persisted task
// result shape and derives benchmark summaries from stored results.
package result

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/stellarlinkco/embench/internal/evaluator"
	"github.com/stellarlinkco/embench/internal/task"
)

// SchemaVersion tags every persisted TaskResult. Stored results carrying a
// different version are treated as absent, never migrated.
const SchemaVersion = 1

// TaskResult holds every split report for one (model, task) evaluation plus
// the selected main score. Results are never mutated after aggregation;
// reruns write a superseding record.
type TaskResult struct {
	SchemaVersion int                          `json:"schema_version"`
	RunID         string                       `json:"run_id"`
	TaskName      string                       `json:"task_name"`
	TaskType      task.Type                    `json:"task_type"`
	ModelID       string                       `json:"model_id"`
	Revision      string                       `json:"revision"`
	CreatedAt     time.Time                    `json:"created_at"`
	Splits        map[string]*evaluator.Report `json:"splits"`

	MainScore       float64 `json:"main_score"`
	MainScoreMetric string  `json:"main_score_metric"`
	// MainScoreSplit records which split actually supplied the main score,
	// so a fallback from the descriptor's split stays visible.
	MainScoreSplit string `json:"main_score_split"`
}

// Aggregate selects the main score from the split reports and assembles the
// TaskResult. The descriptor's split is preferred; when it is absent the
// aggregator falls back to "validation", then to the only split evaluated.
func Aggregate(d *task.Descriptor, modelID, runID string, reports map[string]*evaluator.Report) (*TaskResult, error) {
	if d == nil {
		return nil, errors.New("result: nil descriptor")
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if modelID == "" {
		return nil, errors.New("result: empty model id")
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("result: task %q produced no reports", d.Name)
	}

	split, err := mainSplit(d.EvalSplit(), reports)
	if err != nil {
		return nil, fmt.Errorf("result: task %q: %w", d.Name, err)
	}

	report := reports[split]
	score, ok := report.Scores[d.MainScore]
	if !ok {
		if reason, failed := report.Failures[d.MainScore]; failed {
			return nil, fmt.Errorf("result: task %q: main score %q failed on split %q: %s", d.Name, d.MainScore, split, reason)
		}
		return nil, fmt.Errorf("result: task %q: split %q has no metric %q", d.Name, split, d.MainScore)
	}

	return &TaskResult{
		SchemaVersion:   SchemaVersion,
		RunID:           runID,
		TaskName:        d.Name,
		TaskType:        d.Type,
		ModelID:         modelID,
		Revision:        d.Dataset.Revision,
		CreatedAt:       time.Now().UTC(),
		Splits:          reports,
		MainScore:       score,
		MainScoreMetric: d.MainScore,
		MainScoreSplit:  split,
	}, nil
}

func mainSplit(preferred string, reports map[string]*evaluator.Report) (string, error) {
	if _, ok := reports[preferred]; ok {
		return preferred, nil
	}
	if _, ok := reports["validation"]; ok {
		return "validation", nil
	}
	if len(reports) == 1 {
		for s := range reports {
			return s, nil
		}
	}
	names := make([]string, 0, len(reports))
	for s := range reports {
		names = append(names, s)
	}
	sort.Strings(names)
	return "", fmt.Errorf("no main-score split: %q not evaluated and splits %v are ambiguous", preferred, names)
}

// BenchmarkSummary averages main scores across one model's task results.
// It is always derived on demand, never stored.
type BenchmarkSummary struct {
	ModelID   string                `json:"model_id"`
	Results   []*TaskResult         `json:"results"`
	Mean      float64               `json:"mean"`
	ByType    map[task.Type]float64 `json:"by_type"`
	TaskCount int                   `json:"task_count"`
}

// Summarize builds a BenchmarkSummary over one model's results, ordered by
// task name.
func Summarize(modelID string, results []*TaskResult) (*BenchmarkSummary, error) {
	if modelID == "" {
		return nil, errors.New("result: empty model id")
	}

	kept := make([]*TaskResult, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.ModelID != modelID {
			return nil, fmt.Errorf("result: summary for %q got result for model %q", modelID, r.ModelID)
		}
		kept = append(kept, r)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].TaskName < kept[j].TaskName })

	summary := &BenchmarkSummary{
		ModelID:   modelID,
		Results:   kept,
		ByType:    make(map[task.Type]float64),
		TaskCount: len(kept),
	}
	if len(kept) == 0 {
		return summary, nil
	}

	var total float64
	typeSums := make(map[task.Type]float64)
	typeCounts := make(map[task.Type]int)
	for _, r := range kept {
		total += r.MainScore
		typeSums[r.TaskType] += r.MainScore
		typeCounts[r.TaskType]++
	}
	summary.Mean = total / float64(len(kept))
	for typ, sum := range typeSums {
		summary.ByType[typ] = sum / float64(typeCounts[typ])
	}
	return summary, nil
}
