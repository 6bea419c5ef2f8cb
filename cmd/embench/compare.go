package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/embench/internal/store"
)

func newCompareCmd(st *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <model-a> <model-b>",
		Short: "Compare two models' main scores task by task",
		Args:  cobra.ExactArgs(2),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadState(st)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := store.Open(st.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = results.Close() }()

			cmp, err := results.Compare(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if len(cmp.Tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks evaluated by both models.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "TASK\tMETRIC\t%s\t%s\tDELTA\n", cmp.ModelA, cmp.ModelB)
			for _, tc := range cmp.Tasks {
				fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%+.4f\n",
					tc.TaskName, tc.Metric, tc.ScoreA, tc.ScoreB, tc.Delta)
			}
			return tw.Flush()
		},
	}
	return cmd
}
