// Package samples selects one week of adjustment records and derives their standard.
package samples

import "github.com/vsinha/tripweights/pkg/domain/entities"

// Extractor filters adjustment records to a week
type Extractor struct{}

// NewExtractor creates a new sample extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the week's records in input order with the standard
// derived from the technical product code. Malformed codes are kept and
// reported as issues.
func (e *Extractor) Extract(
	records []entities.AdjustmentRecord,
	week entities.WeekKey,
) ([]entities.SampleRecord, []entities.DataQualityIssue) {
	var out []entities.SampleRecord
	var issues []entities.DataQualityIssue

	for _, record := range records {
		if record.Week != week {
			continue
		}
		parsed := record.TechnicalProductCode.Parse()
		if !parsed.WellFormed {
			issues = append(issues, entities.DataQualityIssue{
				Week:  week,
				Table: entities.AdjustmentTable,
				Row:   record.SourceRow,
				Code:  record.TechnicalProductCode,
			})
		}
		out = append(out, entities.SampleRecord{
			AdjustmentRecord: record,
			Standard:         parsed.Standard,
		})
	}

	return out, issues
}
