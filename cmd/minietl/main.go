package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ajitpratap0/minietl/internal/pipeline"
	"github.com/ajitpratap0/minietl/pkg/config"
)

var version = "0.1.0"

const defaultConfigPath = "config/config.yaml"

// overrideFlags maps run flags to configuration override names.
var overrideFlags = map[string]string{
	"csv-file":      "csv_file",
	"json-file":     "json_file",
	"parquet-file":  "parquet_file",
	"output-file":   "output_file",
	"output-format": "output_format",
}

func main() {
	// Load .env file if it exists; variables already set win
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "minietl",
		Short: "minietl - merge sales, products and regions into one table",
		Long: `minietl reads sales (CSV), products (JSON) and regions (Parquet), joins them
into one dataset and writes it to a file and a database table.`,
		SilenceUsage: true,
	}
	root.SetOut(out)

	root.AddCommand(newRunCmd(), newConfigCmd(), newVersionCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var opts pipeline.Options

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline",
		Long: `Run extract, transform and load once.

Stage failures are logged and do not change the exit status; only a
configuration that cannot be resolved does.

Example:
  minietl run --config config/config.yaml --output-file out/merged.parquet --output-format parquet`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Overrides = changedOverrides(cmd.Flags())
			opts.TraceWriter = cmd.ErrOrStderr()
			opts.Version = version

			report, err := pipeline.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	flags := runCmd.Flags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", defaultConfigPath, "Path to the configuration file")
	flags.String("csv-file", "", "Sales CSV file, overrides data_paths.csv_file")
	flags.String("json-file", "", "Products JSON file, overrides data_paths.json_file")
	flags.String("parquet-file", "", "Regions Parquet file, overrides data_paths.parquet_file")
	flags.String("output-file", "", "Output file, overrides data_paths.output_file")
	flags.String("output-format", "", "Output format (csv, parquet), overrides pipeline.output_format")
	flags.StringVar(&opts.MetricsFile, "metrics-file", "", "Write run metrics in the Prometheus text format to this file")
	flags.BoolVar(&opts.Trace, "trace", false, "Export one span per stage to stderr")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Mirror log lines to stderr")
	return runCmd
}

// changedOverrides collects the override flags set on the command line.
func changedOverrides(flags *pflag.FlagSet) map[string]string {
	overrides := make(map[string]string)
	flags.Visit(func(f *pflag.Flag) {
		if name, ok := overrideFlags[f.Name]; ok {
			overrides[name] = f.Value.String()
		}
	})
	return overrides
}

func printReport(w io.Writer, report *pipeline.Report) {
	fmt.Fprintf(w, "run %s finished in %s\n", report.RunID, report.Duration)
	for _, name := range []string{pipeline.SourceSales, pipeline.SourceProducts, pipeline.SourceRegions} {
		fmt.Fprintf(w, "  %-9s %d rows\n", name, report.SourceRows[name])
	}
	fmt.Fprintf(w, "  merged    %d rows\n", report.MergedRows)
	if report.LoadSkipped {
		fmt.Fprintln(w, "  load skipped: merged dataset is empty")
	}
	for _, f := range report.Failures {
		fmt.Fprintf(w, "  %s/%s failed (%s): %v\n", f.Stage, f.Component, f.Kind, f.Err)
	}
}

func newConfigCmd() *cobra.Command {
	var configPath, outputPath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Long: `Print the configuration after environment overrides, with the database password masked.
With --output the configuration is written to a file instead.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(configPath, nil)
			if err != nil {
				return err
			}
			if outputPath != "" {
				if err := config.Save(outputPath, cfg.Redacted()); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "configuration written to %s\n", outputPath)
				return err
			}
			data, err := config.Marshal(cfg.Redacted())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to the configuration file")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the resolved configuration to this file")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "minietl v%s\n", version)
			fmt.Fprintf(w, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(w, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
