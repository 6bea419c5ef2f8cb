package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/stellarlinkco/embench/internal/runner"
)

type outputFormat string

const (
	formatTable outputFormat = "table"
	formatJSON  outputFormat = "json"
)

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
)

func resolveOutputFormat(s string) (outputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return formatTable, nil
	case "json", "jsonl":
		return formatJSON, nil
	default:
		return "", fmt.Errorf("invalid --output %q (expected table|json)", s)
	}
}

func coloredStatus(ok bool) string {
	if ok {
		return colorGreen + "DONE" + colorReset
	}
	return colorRed + "FAILED" + colorReset
}

func printSummaryTable(w io.Writer, summary *runner.RunSummary) {
	if summary == nil {
		return
	}

	fmt.Fprintf(w, "Run: %s  model=%s\n\n", summary.RunID, summary.ModelID)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tSTATE\tMAIN SCORE\tSPLIT\tNOTE")
	for _, o := range summary.Outcomes {
		score := "-"
		split := "-"
		note := ""
		if o.Result != nil {
			score = fmt.Sprintf("%.4f", o.Result.MainScore)
			split = o.Result.MainScoreSplit
		}
		switch {
		case o.Cached:
			note = "cached"
		case o.Err != nil:
			note = fmt.Sprintf("%s: %v", o.FailedIn, o.Err)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.TaskName, coloredStatus(!o.Failure()), score, split, note)
	}
	_ = tw.Flush()

	fmt.Fprintf(w, "\nSummary: tasks=%d done=%d failed=%d cached=%d elapsed=%s\n",
		len(summary.Outcomes), summary.Done, summary.Failed, summary.Cached,
		summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond))
}

func printSummaryJSON(w io.Writer, summary *runner.RunSummary) error {
	if summary == nil {
		return nil
	}

	type outcomeJSON struct {
		Task      string  `json:"task"`
		State     string  `json:"state"`
		FailedIn  string  `json:"failed_in,omitempty"`
		Cached    bool    `json:"cached,omitempty"`
		MainScore float64 `json:"main_score,omitempty"`
		Split     string  `json:"main_score_split,omitempty"`
		Error     string  `json:"error,omitempty"`
	}

	out := struct {
		RunID    string        `json:"run_id"`
		ModelID  string        `json:"model_id"`
		Done     int           `json:"done"`
		Failed   int           `json:"failed"`
		Cached   int           `json:"cached"`
		Outcomes []outcomeJSON `json:"outcomes"`
	}{
		RunID:   summary.RunID,
		ModelID: summary.ModelID,
		Done:    summary.Done,
		Failed:  summary.Failed,
		Cached:  summary.Cached,
	}

	for _, o := range summary.Outcomes {
		oj := outcomeJSON{
			Task:   o.TaskName,
			State:  string(o.State),
			Cached: o.Cached,
		}
		if o.State == runner.StateFailed {
			oj.FailedIn = string(o.FailedIn)
		}
		if o.Err != nil {
			oj.Error = o.Err.Error()
		}
		if o.Result != nil {
			oj.MainScore = o.Result.MainScore
			oj.Split = o.Result.MainScoreSplit
		}
		out.Outcomes = append(out.Outcomes, oj)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
