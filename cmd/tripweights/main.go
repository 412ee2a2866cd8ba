package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vsinha/tripweights/pkg/interfaces/cli/commands"
)

var version = "dev"

var (
	// Global flags
	verbose bool

	logger   *zap.Logger
	logLevel zap.AtomicLevel

	runConfig commands.Config
	precision int32
)

var rootCmd = &cobra.Command{
	Use:   "tripweights",
	Short: "Redistribute sampled trip adjustments across product volumes",
	Long: `tripweights joins weekly per-product volumes with sparse sampled trip
adjustments and redistributes every sampled row across the products of its
plant and standard.

Each week is processed independently. Results are written as a text report,
JSON, or CSV files (summary.csv plus one detail file per week).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logLevel = config.Level
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the weekly redistribution",
	Long: `Loads the volume and adjustment tables and runs every requested week.

Examples:
  tripweights run --scenario ./data --weeks 2025-08-19,2025-08-26
  tripweights run --volumes v.csv --adjustments a.csv --all-weeks --format csv --output out/
  tripweights run --sqlite trips.db --config tripweights.yaml --metrics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cmd.Flags().Changed("precision") {
			runConfig.Precision = &precision
		}
		runConfig.Verbose = verbose
		runConfig.Logger = logger
		runConfig.LogLevel = &logLevel
		return commands.NewRunCommand(runConfig).Execute(ctx)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "tripweights", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and debug logging")

	flags := runCmd.Flags()
	flags.StringVar(&runConfig.ConfigFile, "config", "tripweights.yaml", "Path to YAML config file")
	flags.StringVar(&runConfig.ScenarioDir, "scenario", "", "Directory containing volumes.csv and adjustments.csv")
	flags.StringVar(&runConfig.VolumeFile, "volumes", "", "Path to volume CSV file")
	flags.StringVar(&runConfig.AdjustmentFile, "adjustments", "", "Path to adjustment CSV file")
	flags.StringVar(&runConfig.SQLiteFile, "sqlite", "", "SQLite database with volumes and adjustments tables")
	flags.StringSliceVar(&runConfig.Weeks, "weeks", nil, "Weeks to process, in order")
	flags.BoolVar(&runConfig.AllWeeks, "all-weeks", false, "Process every week present in the adjustment table")
	flags.BoolVar(&runConfig.LegacyColumns, "legacy-columns", false, "Use the legacy column names")
	flags.IntVar(&runConfig.Workers, "workers", 0, "Number of weeks processed concurrently")
	flags.StringVarP(&runConfig.OutputDir, "output", "o", "", "Output directory for results")
	flags.StringVarP(&runConfig.Format, "format", "f", "", "Output format: text, json, csv")
	flags.Int32Var(&precision, "precision", 0, "Decimal places for rendered numbers")
	flags.BoolVar(&runConfig.Metrics, "metrics", false, "Print a metrics snapshot after the run")

	runCmd.MarkFlagsMutuallyExclusive("weeks", "all-weeks")
	runCmd.MarkFlagsMutuallyExclusive("sqlite", "scenario")
	runCmd.MarkFlagsMutuallyExclusive("sqlite", "volumes")
	runCmd.MarkFlagsMutuallyExclusive("sqlite", "adjustments")

	rootCmd.AddCommand(runCmd, versionCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
