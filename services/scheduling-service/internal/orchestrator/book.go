package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/civil"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/notify"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/reminders"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// BookRequest carries the raw booking fields. Date is YYYY-MM-DD and Time is HH:MM in the
// business's local time. DurationMinutes overrides the catalog duration when positive.
type BookRequest struct {
	ClientName      string
	ClientPhone     string
	Service         string
	Date            string
	Time            string
	DurationMinutes int
	Status          model.Status
}

// validate turns the request into an appointment without an id.
func (o *Orchestrator) validate(ctx context.Context, req BookRequest) (model.Appointment, error) {
	service := strings.TrimSpace(req.Service)
	if service == "" {
		return model.Appointment{}, missing("service")
	}
	if strings.TrimSpace(req.Date) == "" {
		return model.Appointment{}, missing("date")
	}
	date, err := civil.ParseDate(req.Date)
	if err != nil {
		return model.Appointment{}, &ValidationError{Field: "date", Reason: err.Error()}
	}
	if strings.TrimSpace(req.Time) == "" {
		return model.Appointment{}, missing("time")
	}
	start, err := civil.ParseClock(req.Time)
	if err != nil {
		return model.Appointment{}, &ValidationError{Field: "time", Reason: err.Error()}
	}
	client := strings.TrimSpace(req.ClientName)
	if client == "" {
		return model.Appointment{}, missing("client_name")
	}

	duration := req.DurationMinutes
	if duration <= 0 {
		duration = o.durationFor(ctx, service)
	}
	end := start.Add(duration)
	if end > civil.Clock(24*60) {
		return model.Appointment{}, &ValidationError{Field: "time", Reason: "appointment must end on the same day"}
	}
	status := req.Status
	if status == "" {
		status = model.StatusConfirmed
	}
	return model.Appointment{
		ClientName:  client,
		ClientPhone: strings.TrimSpace(req.ClientPhone),
		Service:     service,
		Date:        date,
		StartTime:   start,
		EndTime:     end,
		Status:      status,
	}, nil
}

type BookResult struct {
	Appointment    model.Appointment
	Reminder       reminders.Outcome
	ReminderFailed bool
	WhatsAppSent   bool
	WhatsAppLink   string
}

// Book creates the calendar event and then, best-effort, the reminder and the client
// confirmation. A taken slot or a failed calendar create aborts before anything else runs.
func (o *Orchestrator) Book(ctx context.Context, req BookRequest) (BookResult, error) {
	var res BookResult
	err := o.run(ctx, "book", func(ctx context.Context, span trace.Span) error {
		appt, err := o.validate(ctx, req)
		if err != nil {
			return err
		}
		phone := o.resolvePhone(ctx, appt.ClientPhone, "", appt.ClientName)
		res, err = o.book(ctx, appt, phone, true)
		if err != nil {
			return err
		}
		span.SetAttributes(attribute.String("event_id", res.Appointment.ID))
		o.emit(ctx, notify.Event{
			Type:     notify.EventBooked,
			Title:    "Novo agendamento",
			Message:  fmt.Sprintf("%s - %s em %s às %s", res.Appointment.Service, res.Appointment.ClientName, res.Appointment.Date, res.Appointment.StartTime),
			EventIDs: []string{res.Appointment.ID},
			Attributes: map[string]string{
				"date": res.Appointment.Date.String(),
				"time": res.Appointment.StartTime.String(),
			},
		})
		return nil
	})
	return res, err
}

func (o *Orchestrator) book(ctx context.Context, appt model.Appointment, phone string, confirm bool) (BookResult, error) {
	conflict, taken, err := o.Slots.Check(ctx, appt)
	if err != nil {
		return BookResult{}, upstream("availability check", err)
	}
	if taken {
		return BookResult{}, &ConflictError{Date: appt.Date, Time: appt.StartTime, Conflict: conflict}
	}
	if appt.ClientPhone == "" {
		appt.ClientPhone = phone
	}

	created, err := o.createEvent(ctx, appt)
	if err != nil {
		o.Logger.Error("calendar create failed", "err", err, "date", appt.Date.String(), "time", appt.StartTime.String())
		return BookResult{}, upstream("calendar create", err)
	}
	res := BookResult{Appointment: created}

	if phone != "" {
		outcome, err := o.createReminder(ctx, o.reminderInput(created, phone))
		res.Reminder = outcome
		res.ReminderFailed = err != nil
	}
	if confirm {
		msg := notify.ConfirmationMessage(created)
		res.WhatsAppSent = o.send(ctx, "confirmation", phone, msg)
		if phone != "" {
			res.WhatsAppLink = notify.WhatsAppLink(phone, msg)
		}
	}
	return res, nil
}

type OccurrenceFailure struct {
	Date  civil.Date
	Error string
}

type RecurringResult struct {
	Appointments   []model.Appointment
	Succeeded      int
	Failed         int
	Failures       []OccurrenceFailure
	ReminderErrors int
	WhatsAppSent   bool
}

// BookRecurring books the same slot on count consecutive weeks. Only the first occurrence
// sends a confirmation; a single summary message follows the loop when anything succeeded.
// A failed occurrence does not stop the rest. The error is set only when none succeeded.
func (o *Orchestrator) BookRecurring(ctx context.Context, req BookRequest, count int) (RecurringResult, error) {
	var res RecurringResult
	err := o.run(ctx, "book_recurring", func(ctx context.Context, span trace.Span) error {
		if count < 1 || count > o.maxOccurrences {
			return &ValidationError{Field: "occurrences", Reason: "must be between 1 and " + strconv.Itoa(o.maxOccurrences)}
		}
		first, err := o.validate(ctx, req)
		if err != nil {
			return err
		}
		dates, err := WeeklyDates(first.Date, count)
		if err != nil {
			return &ValidationError{Field: "occurrences", Reason: err.Error()}
		}
		span.SetAttributes(attribute.Int("occurrences", len(dates)))
		phone := o.resolvePhone(ctx, first.ClientPhone, "", first.ClientName)

		var firstErr error
		for i, d := range dates {
			occ := first
			occ.Date = d
			booked, err := o.book(ctx, occ, phone, i == 0)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				o.Logger.Warn("recurring occurrence failed", "err", err, "date", d.String())
				res.Failed++
				res.Failures = append(res.Failures, OccurrenceFailure{Date: d, Error: err.Error()})
				continue
			}
			res.Succeeded++
			res.Appointments = append(res.Appointments, booked.Appointment)
			if booked.ReminderFailed {
				res.ReminderErrors++
			}
		}
		if res.Succeeded == 0 {
			return firstErr
		}

		firstDate := res.Appointments[0].Date
		lastDate := res.Appointments[len(res.Appointments)-1].Date
		res.WhatsAppSent = o.send(ctx, "recurring_confirmation", phone,
			notify.RecurringConfirmationMessage(first, res.Succeeded, firstDate, lastDate))

		ids := make([]string, 0, len(res.Appointments))
		for _, a := range res.Appointments {
			ids = append(ids, a.ID)
		}
		o.emit(ctx, notify.Event{
			Type:     notify.EventRecurringBooked,
			Title:    "Agendamento recorrente",
			Message:  fmt.Sprintf("%s - %s: %d semanas a partir de %s", first.Service, first.ClientName, res.Succeeded, firstDate),
			EventIDs: ids,
			Attributes: map[string]string{
				"succeeded": strconv.Itoa(res.Succeeded),
				"failed":    strconv.Itoa(res.Failed),
			},
		})
		return nil
	})
	return res, err
}
