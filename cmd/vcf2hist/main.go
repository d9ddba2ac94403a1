// Package main provides the vcf2hist command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/vcf2hist/internal/vcf"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgFile string
	logger  = zap.NewNop()
)

// invocation returns the command line as typed, for the output comment line.
var invocation = func() string {
	return strings.Join(os.Args, " ")
}

// usageError marks errors caused by bad command-line input.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)

	err := root.Execute()
	logger.Sync() //nolint:errcheck
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var ue *usageError
	if errors.As(err, &ue) || errors.Is(err, vcf.ErrInvalidFilter) {
		fmt.Fprintf(os.Stderr, "Run 'vcf2hist --help' for usage.\n")
		return ExitUsage
	}
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Hint: Check that the file path is correct\n")
	}
	return ExitError
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vcf2hist [flags] <filename>",
		Short: "Convert a VCF file to an allele-count histogram for panacus",
		Long: `Convert a VCF file to an allele-count histogram for panacus.

For every variant line, the haplotype calls of all samples are tallied per
allele. Each non-reference allele adds one to the histogram row matching its
occurrence count. With --filter KEY=VALUE only alleles whose INFO value for KEY
equals VALUE are counted; other calls are treated as reference.

The input is named by its path, or "-" for standard input. A file whose name
matches a subcommand (config, export, help, runs, version) must be given with
a directory prefix, for example ./runs.`,
		Example: `  vcf2hist variants.vcf > hist.tsv
  vcf2hist variants.vcf.gz -f AF=0.9
  vcf2hist variants.vcf --pad=false --store runs.duckdb
  cat variants.vcf | vcf2hist -`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("expected exactly one input file, got %d arguments", len(args))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(); err != nil {
				return err
			}
			l, err := newLogger(viper.GetString("log-level"))
			if err != nil {
				return usageErrorf("%v", err)
			}
			logger = l
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args[0])
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default: ~/.vcf2hist.yaml)")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("store", "", "DuckDB file recording finished histograms (recorded after stdout is written; a store failure still exits 1)")

	f := cmd.Flags()
	f.StringP("filter", "f", "", "Only count alleles whose INFO value for KEY equals VALUE (KEY=VALUE)")
	f.Bool("pad", true, "Append zero rows up to the haplotype count of the first variant")

	viper.BindPFlag("log-level", pf.Lookup("log-level")) //nolint:errcheck
	viper.BindPFlag("store", pf.Lookup("store"))         //nolint:errcheck
	viper.BindPFlag("filter", f.Lookup("filter"))        //nolint:errcheck
	viper.BindPFlag("pad", f.Lookup("pad"))              //nolint:errcheck

	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newRunsCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// initConfig reads the config file and environment.
func initConfig() error {
	viper.SetEnvPrefix("VCF2HIST")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		viper.SetConfigFile(filepath.Join(home, ".vcf2hist.yaml"))
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// newLogger builds a console logger writing to stderr.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg.Build()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vcf2hist version %s (%s) built %s\n", version, commit, date)
		},
	}
}
