// Package redistribution reallocates sampled trip counts within each
// plant and standard group and turns them into adjustment weights.
package redistribution

import (
	"cmp"
	"slices"

	"github.com/vsinha/tripweights/pkg/application/services/table"
	"github.com/vsinha/tripweights/pkg/domain/entities"
)

type groupKey struct {
	plantName string
	standard  string
}

func keyOf(r entities.JoinedRecord) groupKey {
	return groupKey{r.PlantName, r.Standard}
}

// CaseCounts tallies how many rows took each redistribution case
type CaseCounts struct {
	Volume      int `json:"volume"`
	Resistance  int `json:"resistance"`
	PassThrough int `json:"pass_through"`
}

func (c *CaseCounts) add(rc entities.RedistributionCase) {
	switch rc {
	case entities.CaseVolume:
		c.Volume++
	case entities.CaseResistance:
		c.Resistance++
	case entities.CasePassThrough:
		c.PassThrough++
	}
}

// Total returns the number of rows counted
func (c CaseCounts) Total() int {
	return c.Volume + c.Resistance + c.PassThrough
}

// Engine recalculates sample counts for joined rows
type Engine struct{}

// NewEngine creates a new redistribution engine
func NewEngine() *Engine {
	return &Engine{}
}

// volumeWeighted reports whether a row is redistributed by its volume share.
// A matched row whose volume weight is null is handled as unmatched.
func volumeWeighted(r entities.JoinedRecord) bool {
	return r.Matched() && r.WeightVolume.Valid
}

// Redistribute computes n_samples_new, the normalized sample weight and the
// weighted adjustment of every row. Zero denominators degrade to a zero weight.
func (e *Engine) Redistribute(joined []entities.JoinedRecord) ([]entities.FinalRecord, CaseCounts) {
	matchedSamples := table.PartitionSum(joined, keyOf, func(r entities.JoinedRecord) (float64, bool) {
		if !volumeWeighted(r) {
			return 0, true
		}
		return float64(r.NSamples), true
	})
	unmatchedSamples := table.PartitionSum(joined, keyOf, func(r entities.JoinedRecord) (float64, bool) {
		if volumeWeighted(r) {
			return 0, true
		}
		return float64(r.NSamples), true
	})

	var counts CaseCounts
	finals := make([]entities.FinalRecord, len(joined))
	for i, row := range joined {
		final := entities.FinalRecord{JoinedRecord: row}
		key := keyOf(row)

		switch {
		case volumeWeighted(row):
			final.Case = entities.CaseVolume
			final.NSamplesNew = row.WeightVolume.Float64 * matchedSamples[key].Total
		case row.WeightByResistance.Valid:
			final.Case = entities.CaseResistance
			final.NSamplesNew = row.WeightByResistance.Float64 * unmatchedSamples[key].Total
		default:
			final.Case = entities.CasePassThrough
			final.NSamplesNew = float64(row.NSamples)
		}

		counts.add(final.Case)
		finals[i] = final
	}

	allSamples := table.PartitionSum(finals,
		func(r entities.FinalRecord) groupKey { return keyOf(r.JoinedRecord) },
		func(r entities.FinalRecord) (float64, bool) { return r.NSamplesNew, true },
	)

	for i := range finals {
		final := &finals[i]
		final.WeightSamplesNew, _ = table.Ratio(final.NSamplesNew, allSamples[keyOf(final.JoinedRecord)].Total)
		final.WeightedAdjustment = final.WeightSamplesNew * final.MLAdjustment
	}

	return finals, counts
}

// Summarize sums the weighted adjustment per plant and standard, sorted by both
func Summarize(week entities.WeekKey, finals []entities.FinalRecord) []entities.WeeklySummary {
	byGroup := make(map[groupKey]int)
	var summaries []entities.WeeklySummary

	for _, final := range finals {
		key := keyOf(final.JoinedRecord)
		index, ok := byGroup[key]
		if !ok {
			index = len(summaries)
			byGroup[key] = index
			summaries = append(summaries, entities.WeeklySummary{
				Week:      week,
				PlantName: key.plantName,
				Standard:  key.standard,
			})
		}
		summaries[index].WeightedAdjustmentSum += final.WeightedAdjustment
	}

	slices.SortFunc(summaries, func(a, b entities.WeeklySummary) int {
		if c := cmp.Compare(a.PlantName, b.PlantName); c != 0 {
			return c
		}
		return cmp.Compare(a.Standard, b.Standard)
	})
	return summaries
}
