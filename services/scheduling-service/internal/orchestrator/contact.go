package orchestrator

import (
	"context"
	"strings"

	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/notify"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/reminders"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ContactResult struct {
	EventID        string
	Phone          string
	Reminder       reminders.Outcome
	ReminderFailed bool
}

// SetContact records the client's phone for an existing appointment. The calendar event is
// left alone; the reminder row for the event is updated in place, or created when none exists.
func (o *Orchestrator) SetContact(ctx context.Context, eventID, phone string) (ContactResult, error) {
	var res ContactResult
	err := o.run(ctx, "set_contact", func(ctx context.Context, span trace.Span) error {
		normalized := notify.NormalizePhone(phone)
		if normalized == "" {
			return missing("client_phone")
		}
		appt, err := o.load(ctx, strings.TrimSpace(eventID))
		if err != nil {
			return err
		}
		span.SetAttributes(attribute.String("event_id", appt.ID))

		res = ContactResult{EventID: appt.ID, Phone: normalized}
		res.Reminder, err = o.updateReminder(ctx, o.reminderInput(appt, normalized))
		res.ReminderFailed = err != nil
		return nil
	})
	return res, err
}
