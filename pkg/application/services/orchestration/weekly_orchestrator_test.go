package orchestration

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/vsinha/tripweights/pkg/domain/entities"
	"github.com/vsinha/tripweights/pkg/infrastructure/events"
	"github.com/vsinha/tripweights/pkg/infrastructure/metrics"
	"github.com/vsinha/tripweights/pkg/infrastructure/repositories/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	weekOne entities.WeekKey = "2025-08-19"
	weekTwo entities.WeekKey = "2025-08-26"
)

func buildRepositories(t *testing.T) (*memory.VolumeRepository, *memory.AdjustmentRepository) {
	t.Helper()

	volumeRepo := memory.NewVolumeRepository(3)
	require.NoError(t, volumeRepo.LoadVolumes([]*entities.VolumeRecord{
		{PlanID: "P1", PlantID: "A", ProductCode: "X-10", Volume: 100, Week: weekOne},
		{PlanID: "P1", PlantID: "A", ProductCode: "X-20", Volume: 300, Week: weekOne},
		{PlanID: "P2", PlantID: "A", ProductCode: "Y-10", Volume: 50, Week: weekOne},
	}))

	adjustmentRepo := memory.NewAdjustmentRepository(5)
	require.NoError(t, adjustmentRepo.LoadAdjustments([]*entities.AdjustmentRecord{
		{PlantName: "A", TechnicalProductCode: "X-10", PlanID: "P1", NSamples: 40, MLAdjustment: 2.0, Week: weekOne},
		{PlantName: "A", TechnicalProductCode: "Y-10", PlanID: "P2", NSamples: 10, MLAdjustment: 1.0, Week: weekOne},
		{PlantName: "A", TechnicalProductCode: "Y-20", PlanID: "P3", NSamples: 5, MLAdjustment: 3.0, Week: weekOne},
		{PlantName: "A", TechnicalProductCode: "X-10", PlanID: "P1", NSamples: 4, MLAdjustment: 1.5, Week: weekTwo},
		{PlantName: "A", TechnicalProductCode: "X20", PlanID: "P2", NSamples: 6, MLAdjustment: 0.5, Week: weekTwo},
	}))

	return volumeRepo, adjustmentRepo
}

func summaryValue(t *testing.T, summaries []entities.WeeklySummary, plant, standard string) float64 {
	t.Helper()
	for _, s := range summaries {
		if s.PlantName == plant && s.Standard == standard {
			return s.WeightedAdjustmentSum
		}
	}
	t.Fatalf("no summary for plant %s standard %s", plant, standard)
	return 0
}

func TestWeeklyOrchestrator_Run(t *testing.T) {
	volumeRepo, adjustmentRepo := buildRepositories(t)
	orchestrator := NewWeeklyOrchestrator(DefaultConfig(), volumeRepo, adjustmentRepo,
		WithLogger(zaptest.NewLogger(t)))

	result, err := orchestrator.Run(context.Background(), []entities.WeekKey{weekOne, weekTwo})
	require.NoError(t, err)
	require.Len(t, result.Weeks, 2)

	first := result.Weeks[0]
	assert.Equal(t, weekOne, first.Week)
	// P1 fans out over two resistances, plus the Y rows
	require.Len(t, first.Details, 4)
	assert.Equal(t, 3, first.Cases.Volume)
	assert.Equal(t, 1, first.Cases.PassThrough)
	assert.InDelta(t, 2.0, summaryValue(t, first.Summary, "A", "X"), 1e-9)
	assert.InDelta(t, 5.0/3.0, summaryValue(t, first.Summary, "A", "Y"), 1e-9)

	// nothing matches in the second week: every row passes through
	second := result.Weeks[1]
	assert.Equal(t, 2, second.Cases.PassThrough)
	// the malformed code forms its own single-row standard
	assert.InDelta(t, 1.5, summaryValue(t, second.Summary, "A", "X"), 1e-9)
	assert.InDelta(t, 0.5, summaryValue(t, second.Summary, "A", "X20"), 1e-9)
	require.Len(t, second.Issues, 1)
	assert.Equal(t, entities.ProductCode("X20"), second.Issues[0].Code)

	require.Len(t, result.Summary, 4)
	assert.Equal(t, weekOne, result.Summary[0].Week)
	assert.Equal(t, weekTwo, result.Summary[3].Week)
	assert.Len(t, result.Issues(), 1)
	assert.Contains(t, result.GetSummary(), "2 weeks")
}

func TestWeeklyOrchestrator_WeightsNormalizePerGroup(t *testing.T) {
	volumeRepo, adjustmentRepo := buildRepositories(t)
	orchestrator := NewWeeklyOrchestrator(DefaultConfig(), volumeRepo, adjustmentRepo)

	result, err := orchestrator.Run(context.Background(), []entities.WeekKey{weekOne})
	require.NoError(t, err)

	totals := make(map[string]float64)
	for _, final := range result.Weeks[0].Details {
		totals[final.PlantName+"/"+final.Standard] += final.WeightSamplesNew
	}
	for group, total := range totals {
		assert.InDelta(t, 1.0, total, 1e-9, group)
	}
}

func TestWeeklyOrchestrator_DuplicateWeeksKeepInputOrder(t *testing.T) {
	volumeRepo, adjustmentRepo := buildRepositories(t)
	config := DefaultConfig()
	config.Workers = 3
	orchestrator := NewWeeklyOrchestrator(config, volumeRepo, adjustmentRepo)

	weeks := []entities.WeekKey{weekTwo, weekOne, weekTwo, weekOne, "2030-01-01"}
	result, err := orchestrator.Run(context.Background(), weeks)
	require.NoError(t, err)
	require.Len(t, result.Weeks, len(weeks))

	for i, week := range weeks {
		assert.Equal(t, week, result.Weeks[i].Week)
	}
	assert.Equal(t, result.Weeks[0].Summary, result.Weeks[2].Summary)
	assert.Empty(t, result.Weeks[4].Details, "a week without data still yields an empty result")
	assert.Len(t, result.Summary, 2+2+2+2)
}

func TestWeeklyOrchestrator_EmptyWeekList(t *testing.T) {
	volumeRepo, adjustmentRepo := buildRepositories(t)
	orchestrator := NewWeeklyOrchestrator(DefaultConfig(), volumeRepo, adjustmentRepo)

	_, err := orchestrator.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyWeekList)
}

func TestWeeklyOrchestrator_CancelledContext(t *testing.T) {
	volumeRepo, adjustmentRepo := buildRepositories(t)
	orchestrator := NewWeeklyOrchestrator(DefaultConfig(), volumeRepo, adjustmentRepo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := orchestrator.Run(ctx, []entities.WeekKey{weekOne, weekTwo})
	assert.ErrorIs(t, err, context.Canceled)
}

type failingVolumeRepository struct {
	*memory.VolumeRepository
}

func (failingVolumeRepository) GetVolumesForWeek(entities.WeekKey) ([]entities.VolumeRecord, error) {
	return nil, errors.New("volume source unavailable")
}

func TestWeeklyOrchestrator_RepositoryError(t *testing.T) {
	volumeRepo, adjustmentRepo := buildRepositories(t)
	orchestrator := NewWeeklyOrchestrator(DefaultConfig(), failingVolumeRepository{volumeRepo}, adjustmentRepo)

	_, err := orchestrator.Run(context.Background(), []entities.WeekKey{weekOne})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "volume source unavailable")
	assert.Contains(t, err.Error(), string(weekOne))
}

func TestWeeklyOrchestrator_ResistanceFallback(t *testing.T) {
	volumeRepo := memory.NewVolumeRepository(2)
	require.NoError(t, volumeRepo.LoadVolumes([]*entities.VolumeRecord{
		{PlanID: "P9", PlantID: "PLT-A", ProductCode: "X-10", Volume: 30, Week: weekOne},
		{PlanID: "P8", PlantID: "PLT-A", ProductCode: "X-20", Volume: 70, Week: weekOne},
	}))
	adjustmentRepo := memory.NewAdjustmentRepository(2)
	require.NoError(t, adjustmentRepo.LoadAdjustments([]*entities.AdjustmentRecord{
		{PlantName: "Plant A", TechnicalProductCode: "X-10", PlanID: "Q1", NSamples: 10, MLAdjustment: 1, Week: weekOne},
		{PlantName: "Plant A", TechnicalProductCode: "X-20", PlanID: "Q2", NSamples: 5, MLAdjustment: 1, Week: weekOne},
	}))

	config := DefaultConfig()
	config.Weighting.ResistanceFallback = true
	config.Weighting.PlantAliases = map[string]string{"Plant A": "PLT-A"}
	result, err := NewWeeklyOrchestrator(config, volumeRepo, adjustmentRepo).Run(context.Background(), []entities.WeekKey{weekOne})
	require.NoError(t, err)

	details := result.Weeks[0].Details
	require.Len(t, details, 2)
	assert.Equal(t, entities.CaseResistance, details[0].Case)
	assert.InDelta(t, 4.5, details[0].NSamplesNew, 1e-9)
	assert.InDelta(t, 10.5, details[1].NSamplesNew, 1e-9)
	assert.InDelta(t, 0.3, details[0].WeightSamplesNew, 1e-9)

	config.Weighting.ResistanceFallback = false
	result, err = NewWeeklyOrchestrator(config, volumeRepo, adjustmentRepo).Run(context.Background(), []entities.WeekKey{weekOne})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Weeks[0].Cases.PassThrough)
}

func TestWeeklyOrchestrator_UnmatchedRowsPassThroughByDefault(t *testing.T) {
	volumeRepo := memory.NewVolumeRepository(2)
	require.NoError(t, volumeRepo.LoadVolumes([]*entities.VolumeRecord{
		{PlanID: "P1", PlantID: "A", ProductCode: "X-10", Volume: 100, Week: weekOne},
		{PlanID: "P1", PlantID: "A", ProductCode: "X-20", Volume: 300, Week: weekOne},
	}))
	adjustmentRepo := memory.NewAdjustmentRepository(2)
	require.NoError(t, adjustmentRepo.LoadAdjustments([]*entities.AdjustmentRecord{
		{PlantName: "A", TechnicalProductCode: "X-10", PlanID: "P9", NSamples: 10, MLAdjustment: 1, Week: weekOne},
		{PlantName: "A", TechnicalProductCode: "X-20", PlanID: "P8", NSamples: 5, MLAdjustment: 1, Week: weekOne},
	}))

	result, err := NewWeeklyOrchestrator(DefaultConfig(), volumeRepo, adjustmentRepo).
		Run(context.Background(), []entities.WeekKey{weekOne})
	require.NoError(t, err)

	// the plant name matches a volume plant id, but without a plan match
	// the rows keep their own counts
	details := result.Weeks[0].Details
	require.Len(t, details, 2)
	assert.Equal(t, 2, result.Weeks[0].Cases.PassThrough)
	for _, final := range details {
		assert.Equal(t, entities.CasePassThrough, final.Case)
		assert.False(t, final.WeightByResistance.Valid)
	}
	assert.Equal(t, 10.0, details[0].NSamplesNew)
	assert.Equal(t, 5.0, details[1].NSamplesNew)
	assert.InDelta(t, 2.0/3.0, details[0].WeightSamplesNew, 1e-9)
	assert.InDelta(t, 1.0/3.0, details[1].WeightSamplesNew, 1e-9)
}

func TestWeeklyOrchestrator_RecordsEventsAndMetrics(t *testing.T) {
	volumeRepo, adjustmentRepo := buildRepositories(t)
	store := events.NewInMemoryEventStore(zaptest.NewLogger(t))
	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	require.NoError(t, err)

	orchestrator := NewWeeklyOrchestrator(DefaultConfig(), volumeRepo, adjustmentRepo,
		WithEventStore(store), WithMetrics(collector))
	_, err = orchestrator.Run(context.Background(), []entities.WeekKey{weekTwo})
	require.NoError(t, err)

	recorded, err := store.ReadEvents(events.WeekStream(weekTwo), 1)
	require.NoError(t, err)
	require.Len(t, recorded, 2)
	assert.Equal(t, events.MalformedKeyEvent, recorded[0].Type())
	assert.Equal(t, events.WeekCompletedEvent, recorded[1].Type())
	assert.Equal(t, 2, recorded[1].Data().(events.WeekCompleted).Rows)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, family := range families {
		names = append(names, family.GetName())
	}
	assert.Contains(t, names, "tripweights_malformed_keys_total")
	assert.Contains(t, names, "tripweights_redistribution_cases_total")
}
