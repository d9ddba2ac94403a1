package main

import (
	"bufio"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vcf2hist/internal/duckdb"
	"github.com/inodb/vcf2hist/internal/output"
)

func newRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "runs",
		Short:   "List histograms recorded with --store",
		Example: `  vcf2hist runs --store runs.duckdb`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns()
			if err != nil {
				return err
			}

			w := bufio.NewWriter(cmd.OutOrStdout())
			fmt.Fprintln(w, "run_id\tcreated_at\tinput\tfilter\tlines\thaplotypes")
			for _, r := range runs {
				filter := r.Filter
				if filter == "" {
					filter = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
					r.ID, r.CreatedAt.Format(time.RFC3339), r.Input.Path, filter, r.Lines, r.HaplotypeTotal-1)
			}
			return w.Flush()
		},
	}
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "export <run-id>",
		Short:   "Write a stored histogram in panacus format",
		Example: `  vcf2hist export 0b6f4d0e-5c1a-4d7e-9a39-3c0f8f1c2b7a --store runs.duckdb > hist.tsv`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("expected exactly one run id, got %d arguments", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			run, h, err := store.LoadRun(args[0])
			if err != nil {
				return err
			}

			w := output.NewPanacusWriter(cmd.OutOrStdout())
			w.SetPad(run.Pad)
			if err := w.WriteHeader(run.Invocation); err != nil {
				return fmt.Errorf("writing header: %w", err)
			}
			if err := w.WriteHistogram(h, run.HaplotypeTotal); err != nil {
				return fmt.Errorf("writing histogram: %w", err)
			}
			return w.Flush()
		},
	}
}

// openStore opens the store named by --store or the config.
func openStore() (*duckdb.Store, error) {
	path := viper.GetString("store")
	if path == "" {
		return nil, usageErrorf("--store is required")
	}
	return duckdb.Open(path)
}
