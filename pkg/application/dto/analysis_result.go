package dto

import (
	"fmt"
	"time"

	"github.com/vsinha/tripweights/pkg/application/services/redistribution"
	"github.com/vsinha/tripweights/pkg/domain/entities"
)

// WeekResult contains the row-level detail and summary of one analysis week
type WeekResult struct {
	Week     entities.WeekKey            `json:"week"`
	Details  []entities.FinalRecord      `json:"details"`
	Summary  []entities.WeeklySummary    `json:"summary"`
	Issues   []entities.DataQualityIssue `json:"issues,omitempty"`
	Cases    redistribution.CaseCounts   `json:"cases"`
	Duration time.Duration               `json:"duration_ns"`
}

// AnalysisResult contains the union of weekly summaries and the per-week detail,
// both in input week order
type AnalysisResult struct {
	Summary []entities.WeeklySummary `json:"summary"`
	Weeks   []WeekResult             `json:"weeks"`
}

// Issues returns every data-quality issue across weeks
func (r *AnalysisResult) Issues() []entities.DataQualityIssue {
	var issues []entities.DataQualityIssue
	for _, week := range r.Weeks {
		issues = append(issues, week.Issues...)
	}
	return issues
}

// GetSummary returns a one-line description of the analysis
func (r *AnalysisResult) GetSummary() string {
	var rows int
	var cases redistribution.CaseCounts
	for _, week := range r.Weeks {
		rows += len(week.Details)
		cases.Volume += week.Cases.Volume
		cases.Resistance += week.Cases.Resistance
		cases.PassThrough += week.Cases.PassThrough
	}
	return fmt.Sprintf("%d weeks, %d groups, %d rows (volume %d, resistance %d, pass-through %d), %d issues",
		len(r.Weeks), len(r.Summary), rows,
		cases.Volume, cases.Resistance, cases.PassThrough,
		len(r.Issues()))
}
