package entities

import "fmt"

// AdjustmentRecord represents sampled trips and the ML-derived adjustment for a product
type AdjustmentRecord struct {
	PlantName            string      `json:"plant_name"`
	TechnicalProductCode ProductCode `json:"technical_product_code"`
	PlanID               string      `json:"plan_id"`
	NSamples             int64       `json:"n_samples"`
	MLAdjustment         float64     `json:"ml_adjustment"`
	Week                 WeekKey     `json:"week"`
	// SourceRow is the row of the record in its input table, 0 when unknown
	SourceRow int `json:"source_row,omitempty"`
}

// NewAdjustmentRecord creates a validated AdjustmentRecord
func NewAdjustmentRecord(
	plantName string,
	code ProductCode,
	planID string,
	nSamples int64,
	mlAdjustment float64,
	week WeekKey,
) (*AdjustmentRecord, error) {
	if nSamples < 0 {
		return nil, fmt.Errorf("sample count cannot be negative, got %d", nSamples)
	}
	if week == "" {
		return nil, fmt.Errorf("week cannot be empty")
	}

	return &AdjustmentRecord{
		PlantName:            plantName,
		TechnicalProductCode: code,
		PlanID:               planID,
		NSamples:             nSamples,
		MLAdjustment:         mlAdjustment,
		Week:                 week,
	}, nil
}

// SampleRecord is an AdjustmentRecord with its standard derived
type SampleRecord struct {
	AdjustmentRecord
	Standard string `json:"standard"`
}
