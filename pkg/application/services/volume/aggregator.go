// Package volume aggregates weekly production volume into per-resistance weights.
package volume

import (
	"github.com/vsinha/tripweights/pkg/application/services/table"
	"github.com/vsinha/tripweights/pkg/domain/entities"
)

type aggKey struct {
	planID     string
	plantID    string
	standard   string
	resistance string
}

type standardKey struct {
	plantID  string
	standard string
}

type resistanceKey struct {
	plantID    string
	standard   string
	resistance string
}

// Aggregator produces VolumeAgg rows for a single week
type Aggregator struct{}

// NewAggregator creates a new volume aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Aggregate filters records to week and sums volume per
// (plan, plant, standard, resistance). Rows with a malformed product code
// fall into the empty resistance bucket and are reported as issues.
func (a *Aggregator) Aggregate(
	records []entities.VolumeRecord,
	week entities.WeekKey,
) ([]entities.VolumeAgg, []entities.DataQualityIssue) {
	var issues []entities.DataQualityIssue
	totals := make(map[aggKey]float64)
	var order []aggKey

	for _, record := range records {
		if record.Week != week {
			continue
		}
		parsed := record.ProductCode.Parse()
		if !parsed.WellFormed {
			issues = append(issues, entities.DataQualityIssue{
				Week:  week,
				Table: entities.VolumeTable,
				Row:   record.SourceRow,
				Code:  record.ProductCode,
			})
		}

		key := aggKey{
			planID:     record.PlanID,
			plantID:    record.PlantID,
			standard:   parsed.Standard,
			resistance: parsed.Resistance,
		}
		if _, seen := totals[key]; !seen {
			order = append(order, key)
		}
		totals[key] += record.Volume
	}

	aggs := make([]entities.VolumeAgg, len(order))
	for i, key := range order {
		aggs[i] = entities.VolumeAgg{
			PlanID:      key.planID,
			PlantID:     key.plantID,
			Standard:    key.standard,
			Resistance:  key.resistance,
			Week:        week,
			TotalVolume: totals[key],
		}
	}

	byStandard := table.PartitionSum(aggs,
		func(v entities.VolumeAgg) standardKey { return standardKey{v.PlantID, v.Standard} },
		totalVolume,
	)
	byResistance := table.PartitionSum(aggs,
		func(v entities.VolumeAgg) resistanceKey { return resistanceKey{v.PlantID, v.Standard, v.Resistance} },
		totalVolume,
	)

	for i := range aggs {
		agg := &aggs[i]
		standardTotal := byStandard[standardKey{agg.PlantID, agg.Standard}].Total
		resistanceTotal := byResistance[resistanceKey{agg.PlantID, agg.Standard, agg.Resistance}].Total

		agg.TotalVolumeByStandard = standardTotal
		// zero standard volume degrades to a zero weight
		agg.WeightByResistance, _ = table.Ratio(resistanceTotal, standardTotal)
	}

	return aggs, issues
}

func totalVolume(v entities.VolumeAgg) (float64, bool) {
	return v.TotalVolume, true
}
