package events

import (
	"time"

	"github.com/vsinha/tripweights/pkg/domain/entities"
)

const (
	WeekCompletedEvent = "week.completed"
	MalformedKeyEvent  = "key.malformed"
)

// WeekStream returns the stream id events for a week are appended to
func WeekStream(week entities.WeekKey) string {
	return "week/" + string(week)
}

type WeekCompleted struct {
	Week     entities.WeekKey `json:"week"`
	Rows     int              `json:"rows"`
	Groups   int              `json:"groups"`
	Duration time.Duration    `json:"duration"`
}

type MalformedKey struct {
	Issue entities.DataQualityIssue `json:"issue"`
}
