package availability

import (
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/civil"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
)

// CheckGranularityMinutes is the scan step for candidate starts. It is finer than the
// 30-minute display grid so variable-length services still find a fit.
const CheckGranularityMinutes = 10

// Interval is a half-open [Start, End) wall-clock range on one date.
type Interval struct {
	Start civil.Clock `json:"start"`
	End   civil.Clock `json:"end"`
}

type OccupiedKind string

const (
	KindAppointment OccupiedKind = "appointment"
	KindBlock       OccupiedKind = "block"
	KindVacation    OccupiedKind = "vacation"
)

// Occupied is a busy interval with enough context for the UI to explain a conflict.
type Occupied struct {
	Interval
	Kind  OccupiedKind `json:"kind"`
	Ref   string       `json:"ref,omitempty"`
	Label string       `json:"label,omitempty"`
}

// GenerateSlots returns candidate starts from opening time in granularity steps. Generation
// stops at the first start whose end would pass closing time.
func GenerateSlots(hours *model.BusinessHours, durationMinutes, granularityMinutes int) []civil.Clock {
	if hours == nil || hours.Closed || durationMinutes <= 0 {
		return nil
	}
	if granularityMinutes <= 0 {
		granularityMinutes = CheckGranularityMinutes
	}
	var slots []civil.Clock
	for t := hours.StartTime; ; t = t.Add(granularityMinutes) {
		if t.Add(durationMinutes) > hours.EndTime {
			break
		}
		slots = append(slots, t)
	}
	return slots
}

// Overlaps reports whether two half-open intervals intersect. Back-to-back intervals do not.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && a.End > b.Start
}

// FirstConflict returns the first occupied interval that overlaps candidate.
func FirstConflict(candidate Interval, occupied []Occupied) (Occupied, bool) {
	for _, o := range occupied {
		if Overlaps(candidate, o.Interval) {
			return o, true
		}
	}
	return Occupied{}, false
}
