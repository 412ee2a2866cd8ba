package memory

import (
	"sync"

	"github.com/vsinha/tripweights/pkg/domain/entities"
	"github.com/vsinha/tripweights/pkg/domain/repositories"
)

// AdjustmentRepository provides in-memory adjustment storage indexed by week
type AdjustmentRepository struct {
	mu      sync.RWMutex
	records []entities.AdjustmentRecord
	byWeek  map[entities.WeekKey][]int
}

// NewAdjustmentRepository creates a new in-memory adjustment repository
func NewAdjustmentRepository(expectedRecords int) *AdjustmentRepository {
	return &AdjustmentRepository{
		records: make([]entities.AdjustmentRecord, 0, expectedRecords),
		byWeek:  make(map[entities.WeekKey][]int),
	}
}

// Verify interface compliance
var _ repositories.AdjustmentRepository = (*AdjustmentRepository)(nil)

// LoadAdjustments loads adjustment records into the repository
func (r *AdjustmentRepository) LoadAdjustments(records []*entities.AdjustmentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, record := range records {
		r.byWeek[record.Week] = append(r.byWeek[record.Week], len(r.records))
		r.records = append(r.records, *record)
	}
	return nil
}

// GetAdjustmentsForWeek returns a copy of the records for one week, in load order
func (r *AdjustmentRepository) GetAdjustmentsForWeek(week entities.WeekKey) ([]entities.AdjustmentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	indexes := r.byWeek[week]
	records := make([]entities.AdjustmentRecord, len(indexes))
	for i, index := range indexes {
		records[i] = r.records[index]
	}
	return records, nil
}

// GetAllAdjustments returns a copy of every record
func (r *AdjustmentRepository) GetAllAdjustments() ([]entities.AdjustmentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]entities.AdjustmentRecord, len(r.records))
	copy(records, r.records)
	return records, nil
}
