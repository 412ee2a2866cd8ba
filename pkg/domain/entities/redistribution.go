package entities

// JoinedRecord is a sample row annotated with its matched volume aggregate, if any
type JoinedRecord struct {
	SampleRecord
	Resistance string `json:"resistance"`

	// TotalVolume is null when the plan had no volume for the week
	TotalVolume        NullFloat64 `json:"total_volume"`
	WeightByResistance NullFloat64 `json:"weight_by_resistance"`
	// TotalVolumeSum is the matched volume of the (plant_name, standard) group
	TotalVolumeSum float64     `json:"total_volume_sum"`
	WeightVolume   NullFloat64 `json:"weight_volume"`
}

// Matched reports whether the join found a volume aggregate for the row
func (r JoinedRecord) Matched() bool {
	return r.TotalVolume.Valid
}

// RedistributionCase identifies how a row's sample count was recalculated
type RedistributionCase int

const (
	// CaseVolume redistributes matched samples by volume weight
	CaseVolume RedistributionCase = iota
	// CaseResistance redistributes unmatched samples by resistance weight
	CaseResistance
	// CasePassThrough keeps the original sample count
	CasePassThrough
)

// String method for RedistributionCase enum
func (c RedistributionCase) String() string {
	switch c {
	case CaseVolume:
		return "volume"
	case CaseResistance:
		return "resistance"
	case CasePassThrough:
		return "pass_through"
	default:
		return "unknown"
	}
}

// MarshalText encodes the case by name
func (c RedistributionCase) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// FinalRecord is a JoinedRecord with its recalculated samples and weighted adjustment
type FinalRecord struct {
	JoinedRecord
	Case               RedistributionCase `json:"case"`
	NSamplesNew        float64            `json:"n_samples_new"`
	WeightSamplesNew   float64            `json:"weight_samples_new"`
	WeightedAdjustment float64            `json:"weighted_adjustment"`
}

// WeeklySummary is the weighted adjustment total for one plant and standard in a week
type WeeklySummary struct {
	Week                  WeekKey `json:"week"`
	PlantName             string  `json:"plant_name"`
	Standard              string  `json:"standard"`
	WeightedAdjustmentSum float64 `json:"weighted_adjustment_sum"`
}
