package memory

import (
	"sync"

	"github.com/vsinha/tripweights/pkg/domain/entities"
	"github.com/vsinha/tripweights/pkg/domain/repositories"
)

// VolumeRepository provides in-memory volume storage indexed by week
type VolumeRepository struct {
	mu      sync.RWMutex
	records []entities.VolumeRecord
	byWeek  map[entities.WeekKey][]int
}

// NewVolumeRepository creates a new in-memory volume repository
func NewVolumeRepository(expectedRecords int) *VolumeRepository {
	return &VolumeRepository{
		records: make([]entities.VolumeRecord, 0, expectedRecords),
		byWeek:  make(map[entities.WeekKey][]int),
	}
}

// Verify interface compliance
var _ repositories.VolumeRepository = (*VolumeRepository)(nil)

// LoadVolumes loads volume records into the repository
func (r *VolumeRepository) LoadVolumes(records []*entities.VolumeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, record := range records {
		r.byWeek[record.Week] = append(r.byWeek[record.Week], len(r.records))
		r.records = append(r.records, *record)
	}
	return nil
}

// GetVolumesForWeek returns a copy of the records for one week, in load order
func (r *VolumeRepository) GetVolumesForWeek(week entities.WeekKey) ([]entities.VolumeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	indexes := r.byWeek[week]
	records := make([]entities.VolumeRecord, len(indexes))
	for i, index := range indexes {
		records[i] = r.records[index]
	}
	return records, nil
}
