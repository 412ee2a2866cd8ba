package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vsinha/tripweights/pkg/application/services/orchestration"
	"github.com/vsinha/tripweights/pkg/application/services/table"
	"github.com/vsinha/tripweights/pkg/application/services/weighting"
	"github.com/vsinha/tripweights/pkg/config"
	"github.com/vsinha/tripweights/pkg/domain/entities"
	"github.com/vsinha/tripweights/pkg/infrastructure/events"
	"github.com/vsinha/tripweights/pkg/infrastructure/metrics"
	"github.com/vsinha/tripweights/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/tripweights/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/tripweights/pkg/infrastructure/repositories/sqlite"
	"github.com/vsinha/tripweights/pkg/interfaces/cli/output"
)

// ErrConflictingInputs is returned when a SQLite database is combined with CSV inputs
var ErrConflictingInputs = errors.New("a SQLite database cannot be combined with CSV inputs")

// Config holds configuration for the run command. Zero values leave the
// corresponding config file setting unchanged; a nil Precision does the same
// so an explicit zero can still override the file.
type Config struct {
	ConfigFile     string
	ScenarioDir    string
	VolumeFile     string
	AdjustmentFile string
	SQLiteFile     string
	Weeks          []string
	AllWeeks       bool
	LegacyColumns  bool
	Workers        int
	OutputDir      string
	Format         string
	Precision      *int32
	Verbose        bool
	Metrics        bool

	Stdout   io.Writer
	Logger   *zap.Logger
	LogLevel *zap.AtomicLevel
}

// RunCommand loads the input tables and runs the weekly analysis
type RunCommand struct {
	config Config
	stdout io.Writer
	logger *zap.Logger
}

// NewRunCommand creates a new run command with the given configuration
func NewRunCommand(config Config) *RunCommand {
	stdout := config.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunCommand{config: config, stdout: stdout, logger: logger}
}

// Execute runs the analysis
func (c *RunCommand) Execute(ctx context.Context) error {
	cfg, err := c.resolveConfig()
	if err != nil {
		return err
	}
	if c.config.LogLevel != nil && !c.config.Verbose {
		if err := c.config.LogLevel.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
	}

	volumes, adjustments, err := c.loadTables(ctx, cfg)
	if err != nil {
		return err
	}

	volumeRepo := memory.NewVolumeRepository(len(volumes))
	if err := volumeRepo.LoadVolumes(volumes); err != nil {
		return fmt.Errorf("failed to load volumes into repository: %w", err)
	}
	adjustmentRepo := memory.NewAdjustmentRepository(len(adjustments))
	if err := adjustmentRepo.LoadAdjustments(adjustments); err != nil {
		return fmt.Errorf("failed to load adjustments into repository: %w", err)
	}

	weeks := toWeekKeys(cfg.Weeks)
	if c.config.AllWeeks {
		all, err := adjustmentRepo.GetAllAdjustments()
		if err != nil {
			return fmt.Errorf("failed to list adjustment weeks: %w", err)
		}
		weeks = distinctWeeks(all)
	}

	if c.config.Verbose {
		fmt.Fprintf(c.stdout, "✅ Data loaded: %d volume rows, %d adjustment rows, %d weeks\n\n",
			len(volumes), len(adjustments), len(weeks))
	}

	store := events.NewInMemoryEventStore(c.logger)
	if c.config.Verbose {
		var mu sync.Mutex
		store.Subscribe(events.WeekCompletedEvent, events.HandlerFunc(func(e events.Event) error {
			done := e.Data().(events.WeekCompleted)
			mu.Lock()
			defer mu.Unlock()
			_, err := fmt.Fprintf(c.stdout, "🔄 Week %s: %d rows, %d groups in %v\n", done.Week, done.Rows, done.Groups, done.Duration)
			return err
		}))
	}

	registry := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	orchestrator := orchestration.NewWeeklyOrchestrator(
		orchestration.Config{
			Workers: cfg.Workers,
			Weighting: weighting.Options{
				ResistanceFallback: cfg.ResistanceFallback,
				PlantAliases:       cfg.PlantAliases,
			},
		},
		volumeRepo,
		adjustmentRepo,
		orchestration.WithLogger(c.logger),
		orchestration.WithMetrics(collector),
		orchestration.WithEventStore(store),
	)

	startTime := time.Now()
	result, err := orchestrator.Run(ctx, weeks)
	if err != nil {
		return fmt.Errorf("error running weekly analysis: %w", err)
	}
	elapsed := time.Since(startTime)

	if err := output.Generate(result, output.Config{
		Format:    cfg.Output.Format,
		OutputDir: cfg.Output.Dir,
		Verbose:   c.config.Verbose,
		Precision: cfg.Output.Precision,
		Elapsed:   elapsed,
		Stdout:    c.stdout,
	}); err != nil {
		return fmt.Errorf("error generating output: %w", err)
	}

	if c.config.Verbose {
		fmt.Fprintf(c.stdout, "💾 Memory: %s\n", memory.ReadUsage())
	}

	if c.config.Metrics {
		fmt.Fprintln(c.stdout, "📈 Metrics:")
		if err := metrics.WriteSnapshot(c.stdout, registry); err != nil {
			return err
		}
	}

	return nil
}

// resolveConfig loads the config file and applies command-line overrides
func (c *RunCommand) resolveConfig() (*config.Config, error) {
	if c.config.SQLiteFile != "" && (c.config.ScenarioDir != "" || c.config.VolumeFile != "" || c.config.AdjustmentFile != "") {
		return nil, ErrConflictingInputs
	}

	cfg, err := config.Load(c.config.ConfigFile)
	if err != nil {
		return nil, err
	}

	if len(c.config.Weeks) > 0 {
		cfg.Weeks = c.config.Weeks
	}
	if c.config.Workers > 0 {
		cfg.Workers = c.config.Workers
	}
	if c.config.Format != "" {
		cfg.Output.Format = c.config.Format
	}
	if c.config.OutputDir != "" {
		cfg.Output.Dir = c.config.OutputDir
	}
	if c.config.Precision != nil {
		cfg.Output.Precision = *c.config.Precision
	}
	if c.config.LegacyColumns {
		cfg.VolumeColumns = config.LegacyVolumeColumns()
		cfg.AdjustmentColumns = config.LegacyAdjustmentColumns()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	return cfg, nil
}

// loadTables reads both tables from SQLite or CSV
func (c *RunCommand) loadTables(ctx context.Context, cfg *config.Config) ([]*entities.VolumeRecord, []*entities.AdjustmentRecord, error) {
	if c.config.SQLiteFile != "" {
		loader, err := sqlite.Open(c.config.SQLiteFile, cfg.VolumeColumns, cfg.AdjustmentColumns)
		if err != nil {
			return nil, nil, err
		}
		defer func() { _ = loader.Close() }()

		volumes, err := loader.LoadVolumes(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("error loading volumes: %w", err)
		}
		adjustments, err := loader.LoadAdjustments(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("error loading adjustments: %w", err)
		}
		return volumes, adjustments, nil
	}

	files, err := c.resolveInputFiles()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve input files: %w", err)
	}

	loader := csv.NewLoader(cfg.VolumeColumns, cfg.AdjustmentColumns)
	volumes, err := loader.LoadVolumes(files["Volumes"])
	if err != nil {
		return nil, nil, fmt.Errorf("error loading volumes: %w", err)
	}
	adjustments, err := loader.LoadAdjustments(files["Adjustments"])
	if err != nil {
		return nil, nil, fmt.Errorf("error loading adjustments: %w", err)
	}
	return volumes, adjustments, nil
}

// resolveInputFiles determines the actual file paths to use
func (c *RunCommand) resolveInputFiles() (map[string]string, error) {
	var volumePath, adjustmentPath string

	switch {
	case c.config.ScenarioDir != "":
		volumePath = filepath.Join(c.config.ScenarioDir, "volumes.csv")
		adjustmentPath = filepath.Join(c.config.ScenarioDir, "adjustments.csv")
	case c.config.VolumeFile != "" && c.config.AdjustmentFile != "":
		volumePath = c.config.VolumeFile
		adjustmentPath = c.config.AdjustmentFile
	default:
		return nil, fmt.Errorf("must specify a scenario directory, both CSV files, or a SQLite database")
	}

	files := map[string]string{
		"Volumes":     volumePath,
		"Adjustments": adjustmentPath,
	}

	for name, path := range files {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("%s file not found: %s", name, path)
		}
	}

	return files, nil
}

func toWeekKeys(weeks []string) []entities.WeekKey {
	keys := make([]entities.WeekKey, len(weeks))
	for i, week := range weeks {
		keys[i] = entities.WeekKey(week)
	}
	return keys
}

// distinctWeeks returns every week present in the adjustment table, sorted
func distinctWeeks(adjustments []entities.AdjustmentRecord) []entities.WeekKey {
	weeks := table.GroupOrder(adjustments, func(a entities.AdjustmentRecord) entities.WeekKey { return a.Week })
	sort.Slice(weeks, func(i, j int) bool { return weeks[i] < weeks[j] })
	return weeks
}
