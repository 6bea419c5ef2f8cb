package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/embench/internal/config"
)

type cliState struct {
	configPath string
	cfg        *config.Config
}

var (
	osExit                 = os.Exit
	stderrWriter io.Writer = os.Stderr
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, errTasksFailed) {
			osExit(1)
			return
		}
		fmt.Fprintln(stderrWriter, err)
		osExit(1)
	}
}

func newRootCmd() *cobra.Command {
	st := &cliState{configPath: config.DefaultPath}

	root := &cobra.Command{
		Use:           "embench",
		Short:         "Benchmark text embedding models",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&st.configPath, "config", st.configPath, "path to config file")

	root.AddCommand(newRunCmd(st))
	root.AddCommand(newListCmd(st))
	root.AddCommand(newResultsCmd(st))
	root.AddCommand(newCompareCmd(st))
	return root
}

// loadState loads config lazily; a missing file falls back to defaults so
// read-only commands work without one.
func loadState(st *cliState) error {
	if st == nil {
		return fmt.Errorf("embench: nil state")
	}
	if st.cfg != nil {
		return nil
	}

	cfg, err := config.Load(st.configPath)
	if err != nil {
		if os.IsNotExist(errors.Unwrap(err)) && st.configPath == config.DefaultPath {
			st.cfg = config.Default()
			return nil
		}
		return err
	}
	st.cfg = cfg
	return nil
}
