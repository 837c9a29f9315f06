package orchestrator

import (
	"time"

	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/civil"
	"github.com/teambition/rrule-go"
)

// WeeklyDates expands FREQ=WEEKLY;COUNT=count from first.
func WeeklyDates(first civil.Date, count int) ([]civil.Date, error) {
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.WEEKLY,
		Count:   count,
		Dtstart: first.In(time.UTC),
	})
	if err != nil {
		return nil, err
	}
	all := r.All()
	out := make([]civil.Date, 0, len(all))
	for _, t := range all {
		out = append(out, civil.DateOf(t.UTC()))
	}
	return out, nil
}
