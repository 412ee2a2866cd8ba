package testing

import (
	"fmt"

	"github.com/vsinha/tripweights/pkg/domain/entities"
	"github.com/vsinha/tripweights/pkg/infrastructure/repositories/memory"
)

// Weeks used by the fixture scenarios
const (
	WeekOne entities.WeekKey = "2025-08-19"
	WeekTwo entities.WeekKey = "2025-08-26"
)

// BuildTwoPlantTestData builds a two-week scenario over plants N1 and S1.
//
// Week one covers every redistribution case: N1/NMX is volume weighted,
// N1/ASTM has volume only on another plan so it falls back to resistance
// weights when the fallback is enabled, and S1/ISO has no volume at all. Week two repeats N1/NMX with a
// malformed product code in each table.
func BuildTwoPlantTestData() (*memory.VolumeRepository, *memory.AdjustmentRepository) {
	volumeRepo := memory.NewVolumeRepository(8)
	adjustmentRepo := memory.NewAdjustmentRepository(8)

	volumes := []*entities.VolumeRecord{
		{PlanID: "P1", PlantID: "N1", ProductCode: "NMX-250", Volume: 600, Week: WeekOne},
		{PlanID: "P1", PlantID: "N1", ProductCode: "NMX-300", Volume: 200, Week: WeekOne},
		{PlanID: "P2", PlantID: "N1", ProductCode: "NMX-250", Volume: 200, Week: WeekOne},
		{PlanID: "P4", PlantID: "N1", ProductCode: "ASTM-40", Volume: 150, Week: WeekOne},
		{PlanID: "P4", PlantID: "N1", ProductCode: "ASTM-60", Volume: 50, Week: WeekOne},
		{PlanID: "P1", PlantID: "N1", ProductCode: "NMX-250", Volume: 100, Week: WeekTwo},
		{PlanID: "P1", PlantID: "N1", ProductCode: "NMX", Volume: 20, Week: WeekTwo},
	}
	adjustments := []*entities.AdjustmentRecord{
		{PlantName: "N1", TechnicalProductCode: "NMX-250", PlanID: "P1", NSamples: 30, MLAdjustment: 1.2, Week: WeekOne},
		{PlantName: "N1", TechnicalProductCode: "NMX-250", PlanID: "P2", NSamples: 10, MLAdjustment: 0.8, Week: WeekOne},
		{PlantName: "N1", TechnicalProductCode: "ASTM-40", PlanID: "P3", NSamples: 8, MLAdjustment: -0.5, Week: WeekOne},
		{PlantName: "S1", TechnicalProductCode: "ISO-10", PlanID: "P9", NSamples: 12, MLAdjustment: 0.3, Week: WeekOne},
		{PlantName: "N1", TechnicalProductCode: "NMX-250", PlanID: "P1", NSamples: 5, MLAdjustment: 2.0, Week: WeekTwo},
		{PlantName: "N1", TechnicalProductCode: "NMX", PlanID: "P5", NSamples: 3, MLAdjustment: 1.0, Week: WeekTwo},
	}

	if err := volumeRepo.LoadVolumes(volumes); err != nil {
		panic(err)
	}
	if err := adjustmentRepo.LoadAdjustments(adjustments); err != nil {
		panic(err)
	}
	return volumeRepo, adjustmentRepo
}

// BuildLargeTestData builds a synthetic scenario with the given shape. Every
// plan carries every product, and every other plan is sampled.
func BuildLargeTestData(weeks, plants, plans, products int) ([]entities.WeekKey, *memory.VolumeRepository, *memory.AdjustmentRepository) {
	weekKeys := make([]entities.WeekKey, weeks)
	for w := range weekKeys {
		weekKeys[w] = entities.WeekKey(fmt.Sprintf("2025-W%02d", w+1))
	}

	volumeRepo := memory.NewVolumeRepository(weeks * plants * plans * products)
	adjustmentRepo := memory.NewAdjustmentRepository(weeks * plants * plans * products / 2)

	var volumes []*entities.VolumeRecord
	var adjustments []*entities.AdjustmentRecord
	for _, week := range weekKeys {
		for p := 0; p < plants; p++ {
			plant := fmt.Sprintf("PL%03d", p)
			for n := 0; n < plans; n++ {
				plan := fmt.Sprintf("%s-PLAN%03d", plant, n)
				for k := 0; k < products; k++ {
					code := entities.ProductCode(fmt.Sprintf("STD%d-R%03d", k%3, k))
					volumes = append(volumes, &entities.VolumeRecord{
						PlanID:      plan,
						PlantID:     plant,
						ProductCode: code,
						Volume:      float64(10 + (n*products+k)%90),
						Week:        week,
					})
					if n%2 == 0 {
						adjustments = append(adjustments, &entities.AdjustmentRecord{
							PlantName:            plant,
							TechnicalProductCode: code,
							PlanID:               plan,
							NSamples:             int64(1 + k%7),
							MLAdjustment:         float64(k%11)/10 - 0.5,
							Week:                 week,
						})
					}
				}
			}
		}
	}

	if err := volumeRepo.LoadVolumes(volumes); err != nil {
		panic(err)
	}
	if err := adjustmentRepo.LoadAdjustments(adjustments); err != nil {
		panic(err)
	}
	return weekKeys, volumeRepo, adjustmentRepo
}
