package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/embench/internal/task"
)

func newListCmd(st *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered benchmark tasks",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadState(st)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := task.NewRegistry()
			if err := registry.LoadDir(st.cfg.Data.TaskDir); err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTYPE\tMAIN SCORE\tSPLITS\tREVISION")
			for _, name := range registry.Names() {
				d, ok := registry.Get(name)
				if !ok {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					d.Name, d.Type, d.MainScore, strings.Join(d.EvalSplits(), ","), d.Dataset.Revision)
			}
			return tw.Flush()
		},
	}
	return cmd
}
