package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vsinha/tripweights/pkg/application/services/orchestration"
	"github.com/vsinha/tripweights/pkg/application/services/redistribution"
	"github.com/vsinha/tripweights/pkg/config"
	"github.com/vsinha/tripweights/pkg/domain/entities"
)

const (
	volumesCSV = `plan_id,plant_id,product_code,volume,week
P1,A,X-10,100,2025-08-19
P1,A,X-20,300,2025-08-19
P1,A,X-10,50,2025-08-26
`
	adjustmentsCSV = `plant_name,technical_product_code,plan_id,n_samples,ml_adjustment,week
A,X-10,P1,40,2.0,2025-08-19
A,X-10,P1,4,1.5,2025-08-26
`
)

func writeScenario(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "volumes.csv"), []byte(volumesCSV), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "adjustments.csv"), []byte(adjustmentsCSV), 0644))
	return dir
}

func TestRunCommand_JSON(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRunCommand(Config{
		ScenarioDir: writeScenario(t),
		Weeks:       []string{"2025-08-19"},
		Format:      "json",
		Stdout:      &out,
		Logger:      zaptest.NewLogger(t),
	})
	require.NoError(t, cmd.Execute(context.Background()))

	var result struct {
		Summary []entities.WeeklySummary `json:"summary"`
		Weeks   []struct {
			Cases redistribution.CaseCounts `json:"cases"`
		} `json:"weeks"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	require.Len(t, result.Weeks, 1)
	require.Len(t, result.Summary, 1)
	assert.Equal(t, "A", result.Summary[0].PlantName)
	assert.Equal(t, "X", result.Summary[0].Standard)
	assert.InDelta(t, 2.0, result.Summary[0].WeightedAdjustmentSum, 1e-9)
	assert.Equal(t, 2, result.Weeks[0].Cases.Volume)
}

func TestRunCommand_CSVFiles(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	var out bytes.Buffer
	cmd := NewRunCommand(Config{
		ScenarioDir: writeScenario(t),
		AllWeeks:    true,
		Format:      "csv",
		OutputDir:   outDir,
		Stdout:      &out,
	})
	require.NoError(t, cmd.Execute(context.Background()))

	for _, name := range []string{"summary.csv", "detail_000_2025-08-19.csv", "detail_001_2025-08-26.csv"} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}
}

func TestRunCommand_PrecisionOverride(t *testing.T) {
	dir := writeScenario(t)
	configFile := filepath.Join(dir, "tripweights.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("output:\n  precision: 6\n"), 0644))

	run := func(precision *int32) string {
		var out bytes.Buffer
		require.NoError(t, NewRunCommand(Config{
			ConfigFile:  configFile,
			ScenarioDir: dir,
			Weeks:       []string{"2025-08-19"},
			Format:      "csv",
			Precision:   precision,
			Stdout:      &out,
		}).Execute(context.Background()))
		return out.String()
	}

	assert.Contains(t, run(nil), "2025-08-19,A,X,2.000000\n", "config file precision applies without a flag")

	zero := int32(0)
	assert.Contains(t, run(&zero), "2025-08-19,A,X,2\n", "an explicit zero overrides the config file")
}

func TestRunCommand_VerboseAndMetrics(t *testing.T) {
	dir := writeScenario(t)
	var out bytes.Buffer
	cmd := NewRunCommand(Config{
		VolumeFile:     filepath.Join(dir, "volumes.csv"),
		AdjustmentFile: filepath.Join(dir, "adjustments.csv"),
		AllWeeks:       true,
		Verbose:        true,
		Metrics:        true,
		Stdout:         &out,
	})
	require.NoError(t, cmd.Execute(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Data loaded: 3 volume rows, 2 adjustment rows, 2 weeks")
	assert.Contains(t, text, "Week 2025-08-19")
	assert.Contains(t, text, "Week 2025-08-26")
	assert.Contains(t, text, "tripweights_week_duration_seconds count=2")
	assert.Contains(t, text, "Memory:")
}

func TestRunCommand_Errors(t *testing.T) {
	dir := writeScenario(t)

	testCases := []struct {
		name   string
		config Config
		target error
	}{
		{
			name:   "empty week list",
			config: Config{ScenarioDir: dir},
			target: orchestration.ErrEmptyWeekList,
		},
		{
			name:   "unsupported format",
			config: Config{ScenarioDir: dir, Weeks: []string{"2025-08-19"}, Format: "xml"},
			target: config.ErrInvalidConfig,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.config.Stdout = &bytes.Buffer{}
			err := NewRunCommand(tc.config).Execute(context.Background())
			assert.ErrorIs(t, err, tc.target)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		err := NewRunCommand(Config{
			ScenarioDir: t.TempDir(),
			Weeks:       []string{"2025-08-19"},
			Stdout:      &bytes.Buffer{},
		}).Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "file not found")
	})

	t.Run("sqlite with csv inputs", func(t *testing.T) {
		for _, cfg := range []Config{
			{SQLiteFile: filepath.Join(dir, "trips.db"), ScenarioDir: dir},
			{SQLiteFile: filepath.Join(dir, "trips.db"), VolumeFile: filepath.Join(dir, "volumes.csv")},
			{SQLiteFile: filepath.Join(dir, "trips.db"), AdjustmentFile: filepath.Join(dir, "adjustments.csv")},
		} {
			cfg.Weeks = []string{"2025-08-19"}
			cfg.Stdout = &bytes.Buffer{}
			err := NewRunCommand(cfg).Execute(context.Background())
			assert.ErrorIs(t, err, ErrConflictingInputs)
		}
	})

	t.Run("incomplete inputs", func(t *testing.T) {
		err := NewRunCommand(Config{
			VolumeFile: filepath.Join(dir, "volumes.csv"),
			Weeks:      []string{"2025-08-19"},
			Stdout:     &bytes.Buffer{},
		}).Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must specify")
	})
}
