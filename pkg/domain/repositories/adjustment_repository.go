package repositories

import "github.com/vsinha/tripweights/pkg/domain/entities"

// AdjustmentRepository provides week-scoped access to sampled adjustment records
type AdjustmentRepository interface {
	GetAdjustmentsForWeek(week entities.WeekKey) ([]entities.AdjustmentRecord, error)
	GetAllAdjustments() ([]entities.AdjustmentRecord, error)
	LoadAdjustments(records []*entities.AdjustmentRecord) error
}
