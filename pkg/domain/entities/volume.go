package entities

import "fmt"

// VolumeRecord represents shipped production volume for a plan and product
type VolumeRecord struct {
	PlanID      string      `json:"plan_id"`
	PlantID     string      `json:"plant_id"`
	ProductCode ProductCode `json:"product_code"`
	Volume      float64     `json:"volume"`
	Week        WeekKey     `json:"week"`
	// SourceRow is the row of the record in its input table, 0 when unknown
	SourceRow int `json:"source_row,omitempty"`
}

// NewVolumeRecord creates a validated VolumeRecord
func NewVolumeRecord(planID, plantID string, code ProductCode, volume float64, week WeekKey) (*VolumeRecord, error) {
	if volume < 0 {
		return nil, fmt.Errorf("volume cannot be negative, got %g", volume)
	}
	if week == "" {
		return nil, fmt.Errorf("week cannot be empty")
	}

	return &VolumeRecord{
		PlanID:      planID,
		PlantID:     plantID,
		ProductCode: code,
		Volume:      volume,
		Week:        week,
	}, nil
}

// VolumeAgg is the aggregated volume for one (plan, plant, standard, resistance, week)
type VolumeAgg struct {
	PlanID     string  `json:"plan_id"`
	PlantID    string  `json:"plant_id"`
	Standard   string  `json:"standard"`
	Resistance string  `json:"resistance"`
	Week       WeekKey `json:"week"`

	TotalVolume           float64 `json:"total_volume"`
	TotalVolumeByStandard float64 `json:"total_volume_by_standard"`
	// WeightByResistance is the share of the (plant, standard) volume held by this resistance
	WeightByResistance float64 `json:"weight_by_resistance"`
}
