package memory

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/tripweights/pkg/domain/entities"
)

func TestVolumeRepository_GetVolumesForWeek(t *testing.T) {
	repo := NewVolumeRepository(4)

	err := repo.LoadVolumes([]*entities.VolumeRecord{
		{PlanID: "P1", PlantID: "A", ProductCode: "X-10", Volume: 100, Week: "2025-08-19"},
		{PlanID: "P1", PlantID: "A", ProductCode: "X-20", Volume: 300, Week: "2025-08-19"},
		{PlanID: "P2", PlantID: "B", ProductCode: "Y-10", Volume: 50, Week: "2025-08-26"},
	})
	require.NoError(t, err)

	week, err := repo.GetVolumesForWeek("2025-08-19")
	require.NoError(t, err)
	require.Len(t, week, 2)
	assert.Equal(t, entities.ProductCode("X-10"), week[0].ProductCode)
	assert.Equal(t, entities.ProductCode("X-20"), week[1].ProductCode)

	missing, err := repo.GetVolumesForWeek("2030-01-01")
	require.NoError(t, err)
	assert.Empty(t, missing)

	// Returned slices are copies
	week[0].Volume = -1
	again, _ := repo.GetVolumesForWeek("2025-08-19")
	assert.Equal(t, 100.0, again[0].Volume)
}

func TestAdjustmentRepository_GetAdjustmentsForWeek(t *testing.T) {
	repo := NewAdjustmentRepository(2)

	err := repo.LoadAdjustments([]*entities.AdjustmentRecord{
		{PlantName: "A", TechnicalProductCode: "X-10", PlanID: "P1", NSamples: 40, MLAdjustment: 2, Week: "2025-08-19"},
		{PlantName: "A", TechnicalProductCode: "X-20", PlanID: "P9", NSamples: 5, MLAdjustment: 1, Week: "2025-08-26"},
	})
	require.NoError(t, err)

	week, err := repo.GetAdjustmentsForWeek("2025-08-26")
	require.NoError(t, err)
	require.Len(t, week, 1)
	assert.Equal(t, "P9", week[0].PlanID)

	all, err := repo.GetAllAdjustments()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.0 KB", FormatBytes(1024))
	assert.Equal(t, "1.5 MB", FormatBytes(1536*1024))
	assert.Equal(t, "2048.0 TB", FormatBytes(2<<50))
}

func TestUsage(t *testing.T) {
	before := ReadUsage()
	buf := make([][]byte, 0, 64)
	for i := 0; i < 64; i++ {
		buf = append(buf, make([]byte, 4096))
	}
	runtime.KeepAlive(buf)

	allocated, _ := ReadUsage().Since(before)
	assert.GreaterOrEqual(t, allocated, uint64(64*4096))

	u := Usage{HeapInUse: 2048, TotalAlloc: 512, HeapObjects: 3, NumGC: 1}
	assert.Equal(t, "2.0 KB in use, 512 B allocated, 3 heap objects, 1 GC cycles", u.String())
}
