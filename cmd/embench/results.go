package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/embench/internal/result"
	"github.com/stellarlinkco/embench/internal/store"
)

func newResultsCmd(st *cliState) *cobra.Command {
	var modelID string
	var taskName string
	var limit int

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show stored benchmark results",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadState(st)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := store.Open(st.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = results.Close() }()

			list, err := results.List(cmd.Context(), store.Filter{
				ModelID:  modelID,
				TaskName: taskName,
				Limit:    limit,
			})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "MODEL\tTASK\tMETRIC\tSCORE\tSPLIT\tREVISION\tWHEN")
			for _, r := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\t%s\t%s\t%s\n",
					r.ModelID, r.TaskName, r.MainScoreMetric, r.MainScore,
					r.MainScoreSplit, r.Revision, r.CreatedAt.Format("2006-01-02 15:04"))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if modelID != "" && taskName == "" && len(list) > 0 {
				summary, err := result.Summarize(modelID, list)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nMean main score over %d tasks: %.4f\n", summary.TaskCount, summary.Mean)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&modelID, "model", "", "filter by model identity")
	cmd.Flags().StringVar(&taskName, "task", "", "filter by task name")
	cmd.Flags().IntVar(&limit, "limit", 0, "max results to show")
	return cmd
}
