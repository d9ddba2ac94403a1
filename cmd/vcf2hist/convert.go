package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vcf2hist/internal/duckdb"
	"github.com/inodb/vcf2hist/internal/hist"
	"github.com/inodb/vcf2hist/internal/output"
	"github.com/inodb/vcf2hist/internal/vcf"
)

func runConvert(cmd *cobra.Command, inputPath string) error {
	filter, err := vcf.ParseFilter(viper.GetString("filter"))
	if err != nil {
		return err
	}
	pad := viper.GetBool("pad")

	parser, err := vcf.NewParser(inputPath)
	if err != nil {
		return err
	}
	defer parser.Close()
	parser.SetFilter(filter)

	logger.Info("converting", zap.String("file", inputPath), zap.String("filter", filter.String()))

	builder := hist.NewBuilder()
	builder.SetLogger(logger)
	res, err := builder.Build(parser)
	if err != nil {
		return err
	}

	logger.Info("parsed lines", zap.Int("lines", res.Lines))
	if res.Skipped > 0 {
		logger.Info("ignored non-numeric allele calls", zap.Int("calls", res.Skipped))
	}
	s := res.Histogram.Summary()
	logger.Info("histogram summary",
		zap.Int("entries", s.Entries),
		zap.Float64("mean", s.Mean),
		zap.Float64("stddev", s.StdDev),
		zap.Int("haplotypes", res.HaplotypeTotal-1))

	inv := invocation()
	w := output.NewPanacusWriter(cmd.OutOrStdout())
	w.SetPad(pad)
	if err := w.WriteHeader(inv); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := w.WriteHistogram(res.Histogram, res.HaplotypeTotal); err != nil {
		return fmt.Errorf("writing histogram: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}

	if storePath := viper.GetString("store"); storePath != "" {
		if err := storeRun(storePath, inputPath, filter, inv, res, pad); err != nil {
			return err
		}
	}
	return nil
}

// storeRun records a finished histogram in the DuckDB store.
func storeRun(storePath, inputPath string, filter *vcf.Filter, inv string, res *hist.Result, pad bool) error {
	fp, err := duckdb.StatFile(inputPath)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}

	store, err := duckdb.Open(storePath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	run := duckdb.NewRun(fp, filter.String(), inv, res, pad)
	if err := store.WriteRun(run, res.Histogram); err != nil {
		return fmt.Errorf("storing run: %w", err)
	}
	logger.Info("stored run", zap.String("run_id", run.ID), zap.String("store", storePath))
	return nil
}
