package repositories

import "github.com/vsinha/tripweights/pkg/domain/entities"

// VolumeRepository provides week-scoped access to production volume records
type VolumeRepository interface {
	GetVolumesForWeek(week entities.WeekKey) ([]entities.VolumeRecord, error)
	LoadVolumes(records []*entities.VolumeRecord) error
}
