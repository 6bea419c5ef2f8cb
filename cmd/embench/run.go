package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/embench/internal/cache"
	"github.com/stellarlinkco/embench/internal/dataset"
	"github.com/stellarlinkco/embench/internal/evaluator"
	"github.com/stellarlinkco/embench/internal/model"
	"github.com/stellarlinkco/embench/internal/runner"
	"github.com/stellarlinkco/embench/internal/store"
	"github.com/stellarlinkco/embench/internal/task"
)

var errTasksFailed = errors.New("embench: tasks failed")

type runOptions struct {
	tasks         []string
	all           bool
	encoder       string
	seed          int64
	concurrency   int
	stopOnFailure bool
	output        string
}

func newRunCmd(st *cliState) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate an embedding model on benchmark tasks",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadState(st)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd, st, &opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.tasks, "task", nil, "task name to run (repeatable)")
	cmd.Flags().BoolVar(&opts.all, "all", false, "run every registered task")
	cmd.Flags().StringVar(&opts.encoder, "encoder", "", "encoder backend (overrides config)")
	cmd.Flags().Int64Var(&opts.seed, "seed", -1, "random seed (overrides config)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "max concurrent tasks (overrides config)")
	cmd.Flags().BoolVar(&opts.stopOnFailure, "stop-on-failure", false, "cancel remaining tasks on first failure")
	cmd.Flags().StringVar(&opts.output, "output", "", "output format: table|json")

	return cmd
}

func runBenchmark(cmd *cobra.Command, st *cliState, opts *runOptions) error {
	if st == nil || st.cfg == nil {
		return fmt.Errorf("run: missing config (internal error)")
	}
	if opts == nil {
		return fmt.Errorf("run: nil options")
	}

	switch {
	case opts.all && len(opts.tasks) > 0:
		return fmt.Errorf("run: --all and --task are mutually exclusive")
	case !opts.all && len(opts.tasks) == 0:
		return fmt.Errorf("run: specify either --task <name> or --all")
	}

	output, err := resolveOutputFormat(opts.output)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	registry := task.NewRegistry()
	if err := registry.LoadDir(st.cfg.Data.TaskDir); err != nil {
		return err
	}

	descriptors, err := selectTasks(registry, opts, st.cfg.Data.Revisions)
	if err != nil {
		return err
	}

	encoder, err := resolveEncoder(st, opts.encoder)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	emb, err := cache.Open(st.cfg.Cache.Path)
	if err != nil {
		return err
	}
	defer func() { _ = emb.Close() }()

	results, err := store.Open(st.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = results.Close() }()

	adapter := &dataset.Adapter{
		Source:   &dataset.FSSource{Root: st.cfg.Data.Root},
		CacheDir: st.cfg.Data.CacheDir,
		Retry: dataset.RetryPolicy{
			MaxAttempts: st.cfg.Data.Retries,
			BaseDelay:   time.Duration(st.cfg.Data.BackoffMs) * time.Millisecond,
		},
	}

	cfg := runner.Config{
		Seed:          st.cfg.Run.Seed,
		Concurrency:   st.cfg.Run.Concurrency,
		BatchSize:     st.cfg.Run.BatchSize,
		StopOnFailure: st.cfg.Run.StopOnFailure || opts.stopOnFailure,
	}
	if opts.seed >= 0 {
		cfg.Seed = opts.seed
	}
	if opts.concurrency > 0 {
		cfg.Concurrency = opts.concurrency
	}

	r := runner.New(adapter, encoder, emb, evaluator.DefaultRegistry(), results, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	summary, err := r.Run(ctx, descriptors)
	if err != nil {
		return err
	}

	switch output {
	case formatTable:
		printSummaryTable(cmd.OutOrStdout(), summary)
	case formatJSON:
		if err := printSummaryJSON(cmd.OutOrStdout(), summary); err != nil {
			return err
		}
	default:
		return fmt.Errorf("run: internal error: unknown output format %q", output)
	}

	if summary.Failed > 0 {
		return errTasksFailed
	}
	return nil
}

// selectTasks resolves the requested task names and applies any pinned
// revision overrides from config.
func selectTasks(registry *task.Registry, opts *runOptions, revisions map[string]string) ([]*task.Descriptor, error) {
	names := opts.tasks
	if opts.all {
		names = registry.Names()
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("run: no tasks registered")
	}

	out := make([]*task.Descriptor, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		d, ok := registry.Get(name)
		if !ok {
			return nil, fmt.Errorf("run: unknown task %q", name)
		}
		if rev, ok := revisions[name]; ok && strings.TrimSpace(rev) != "" {
			pinned := *d
			pinned.Dataset.Revision = strings.TrimSpace(rev)
			d = &pinned
		}
		out = append(out, d)
	}
	return out, nil
}

func resolveEncoder(st *cliState, flagValue string) (model.Encoder, error) {
	name := strings.TrimSpace(flagValue)
	if name == "" {
		return model.DefaultEncoderFromConfig(st.cfg)
	}

	reg, err := model.NewRegistryFromConfig(st.cfg)
	if err != nil {
		return nil, err
	}
	e, ok := reg.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown encoder %q", name)
	}
	return e, nil
}
