package calendar

import (
	"io"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
)

// WriteICS exports appointments as an iCalendar feed.
func WriteICS(w io.Writer, name string, appts []model.Appointment, loc *time.Location) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//agenda//scheduling-service//PT")
	if name != "" {
		cal.SetXWRCalName(name)
	}
	stamp := time.Now().UTC()
	for _, a := range appts {
		ev := cal.AddEvent(a.ID + "@agenda")
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(a.Start(loc))
		ev.SetEndAt(a.End(loc))
		ev.SetSummary(Summary(a.Service, a.ClientName))
		if a.Status == model.StatusPending {
			ev.SetStatus(ical.ObjectStatusTentative)
		} else {
			ev.SetStatus(ical.ObjectStatusConfirmed)
		}
	}
	return cal.SerializeTo(w)
}
