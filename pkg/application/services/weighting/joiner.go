// Package weighting joins weekly samples to volume aggregates and derives
// the volume share of every matched row.
package weighting

import (
	"github.com/vsinha/tripweights/pkg/application/services/table"
	"github.com/vsinha/tripweights/pkg/domain/entities"
)

// Options controls how unmatched rows are annotated
type Options struct {
	// ResistanceFallback looks up the resistance weight of an unmatched row
	// from the week's aggregates by plant, standard and resistance
	ResistanceFallback bool
	// PlantAliases maps an adjustment plant name to a volume plant id.
	// Names without an alias are used as the id unchanged.
	PlantAliases map[string]string
}

type groupKey struct {
	plantName string
	standard  string
}

type bucketKey struct {
	plantID    string
	standard   string
	resistance string
}

// Joiner left-joins sample records to volume aggregates on plan id
type Joiner struct {
	options Options
}

// NewJoiner creates a new weight joiner
func NewJoiner(options Options) *Joiner {
	return &Joiner{options: options}
}

// Join emits one row per sample without a match and one row per
// (sample, aggregate) pair otherwise. Every fanned-out row keeps the
// sample's full count.
func (j *Joiner) Join(samples []entities.SampleRecord, aggs []entities.VolumeAgg) []entities.JoinedRecord {
	// an empty plan id is a missing key; leaving it out of the index keeps
	// samples without a plan unmatched
	keyed := make([]entities.VolumeAgg, 0, len(aggs))
	for _, agg := range aggs {
		if agg.PlanID != "" {
			keyed = append(keyed, agg)
		}
	}
	byPlan := table.Index(keyed, func(v entities.VolumeAgg) string { return v.PlanID })

	var buckets map[bucketKey]float64
	if j.options.ResistanceFallback {
		buckets = make(map[bucketKey]float64, len(aggs))
		for _, agg := range aggs {
			buckets[bucketKey{agg.PlantID, agg.Standard, agg.Resistance}] = agg.WeightByResistance
		}
	}

	joined := make([]entities.JoinedRecord, 0, len(samples))
	for _, sample := range samples {
		resistance := sample.TechnicalProductCode.Resistance()
		matches := byPlan[sample.PlanID]

		if len(matches) == 0 {
			joined = append(joined, entities.JoinedRecord{
				SampleRecord:       sample,
				Resistance:         resistance,
				TotalVolume:        entities.Null(),
				WeightByResistance: j.fallbackWeight(buckets, sample, resistance),
			})
			continue
		}

		for _, match := range matches {
			joined = append(joined, entities.JoinedRecord{
				SampleRecord:       sample,
				Resistance:         resistance,
				TotalVolume:        entities.Some(match.TotalVolume),
				WeightByResistance: entities.Some(match.WeightByResistance),
			})
		}
	}

	sums := table.PartitionSum(joined,
		func(r entities.JoinedRecord) groupKey { return groupKey{r.PlantName, r.Standard} },
		func(r entities.JoinedRecord) (float64, bool) { return r.TotalVolume.Float64, r.TotalVolume.Valid },
	)

	for i := range joined {
		row := &joined[i]
		sum := sums[groupKey{row.PlantName, row.Standard}]
		row.TotalVolumeSum = sum.Total

		if !row.TotalVolume.Valid || sum.Null() {
			row.WeightVolume = entities.Null()
			continue
		}
		// a zero group sum yields null, unlike the zero weight of the aggregator
		if w, ok := table.Ratio(row.TotalVolume.Float64, sum.Total); ok {
			row.WeightVolume = entities.Some(w)
		} else {
			row.WeightVolume = entities.Null()
		}
	}

	return joined
}

func (j *Joiner) fallbackWeight(buckets map[bucketKey]float64, sample entities.SampleRecord, resistance string) entities.NullFloat64 {
	if buckets == nil {
		return entities.Null()
	}
	plantID := sample.PlantName
	if alias, ok := j.options.PlantAliases[sample.PlantName]; ok {
		plantID = alias
	}
	w, ok := buckets[bucketKey{plantID, sample.Standard, resistance}]
	if !ok {
		return entities.Null()
	}
	return entities.Some(w)
}
