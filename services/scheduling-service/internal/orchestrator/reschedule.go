package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/civil"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/notify"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type RescheduleRequest struct {
	EventID string
	NewDate string
	NewTime string
	Mode    Mode
}

// Move records one appointment that changed identity.
type Move struct {
	OldID string
	NewID string
	Date  civil.Date
	Time  civil.Clock
}

type RescheduleResult struct {
	SuccessCount   int
	ErrorCount     int
	ReminderErrors int
	WhatsAppSent   bool
	Moves          []Move
	// Restored counts targets whose old event was recreated after the new one failed.
	Restored  int
	Ambiguous bool
}

// Reschedule moves the appointment, or the appointment and its future series members, to
// newDate/newTime. Series members keep their day offset from the anchor; the new time of
// day applies to all of them. Each target is deleted then recreated, and its reminder is
// migrated to the new event id. When the recreate fails the old event is restored. One
// client message summarizes the whole run.
func (o *Orchestrator) Reschedule(ctx context.Context, req RescheduleRequest) (RescheduleResult, error) {
	var res RescheduleResult
	err := o.run(ctx, "reschedule", func(ctx context.Context, span trace.Span) error {
		if strings.TrimSpace(req.NewDate) == "" {
			return missing("date")
		}
		newDate, err := civil.ParseDate(req.NewDate)
		if err != nil {
			return &ValidationError{Field: "date", Reason: err.Error()}
		}
		if strings.TrimSpace(req.NewTime) == "" {
			return missing("time")
		}
		newTime, err := civil.ParseClock(req.NewTime)
		if err != nil {
			return &ValidationError{Field: "time", Reason: err.Error()}
		}

		anchor, err := o.load(ctx, req.EventID)
		if err != nil {
			return err
		}
		targets, ambiguous, err := o.targets(ctx, anchor, req.Mode)
		if err != nil {
			return err
		}
		res.Ambiguous = ambiguous
		span.SetAttributes(attribute.String("mode", string(req.Mode)), attribute.Int("targets", len(targets)))

		phone := o.resolvePhone(ctx, anchor.ClientPhone, anchor.ID, anchor.ClientName)

		var firstErr error
		for _, t := range targets {
			moved := Shift(t, anchor.Date, newDate, newTime)
			if moved.EndTime > civil.Clock(24*60) {
				res.ErrorCount++
				if firstErr == nil {
					firstErr = &ValidationError{Field: "time", Reason: "appointment must end on the same day"}
				}
				continue
			}
			created, reminderFailed, err := o.move(ctx, t, moved, phone, &res)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				res.ErrorCount++
				continue
			}
			res.SuccessCount++
			if reminderFailed {
				res.ReminderErrors++
			}
			res.Moves = append(res.Moves, Move{OldID: t.ID, NewID: created.ID, Date: created.Date, Time: created.StartTime})
		}
		if res.SuccessCount == 0 {
			return firstErr
		}

		msg := notify.RescheduleMessage(anchor, newDate, newTime)
		evType := notify.EventRescheduled
		if req.Mode == ModeSeries && res.SuccessCount > 1 {
			msg = notify.SeriesRescheduleMessage(anchor, newDate, newTime, res.SuccessCount)
			evType = notify.EventSeriesRescheduled
		}
		res.WhatsAppSent = o.send(ctx, "reschedule", phone, msg)

		ids := make([]string, 0, len(res.Moves))
		for _, m := range res.Moves {
			ids = append(ids, m.NewID)
		}
		o.emit(ctx, notify.Event{
			Type:     evType,
			Title:    "Agendamento remarcado",
			Message:  fmt.Sprintf("%s - %s: %s %s → %s %s", anchor.Service, anchor.ClientName, anchor.Date, anchor.StartTime, newDate, newTime),
			EventIDs: ids,
			Attributes: map[string]string{
				"moved":  strconv.Itoa(res.SuccessCount),
				"errors": strconv.Itoa(res.ErrorCount),
			},
		})
		return nil
	})
	return res, err
}

// Shift places a at anchorNew plus its original day offset from anchorOld, starting at
// newTime and keeping its duration.
func Shift(a model.Appointment, anchorOld, anchorNew civil.Date, newTime civil.Clock) model.Appointment {
	duration := a.DurationMinutes()
	a.Date = anchorNew.AddDays(a.Date.DaysSince(anchorOld))
	a.StartTime = newTime
	a.EndTime = newTime.Add(duration)
	return a
}

// move is the delete-then-create step for one target. If the create fails the old event
// is recreated and its reminder migrated back so the appointment is not lost.
func (o *Orchestrator) move(ctx context.Context, old, moved model.Appointment, phone string, res *RescheduleResult) (model.Appointment, bool, error) {
	if err := o.deleteEvent(ctx, old.ID); err != nil {
		o.Logger.Warn("calendar delete failed", "err", err, "event_id", old.ID)
		return model.Appointment{}, false, upstream("calendar delete", err)
	}

	moved.ID = ""
	created, err := o.createEvent(ctx, moved)
	if err != nil {
		o.Logger.Error("calendar create failed during reschedule", "err", err, "event_id", old.ID)
		o.restore(ctx, old, phone, res)
		return model.Appointment{}, false, upstream("calendar create", err)
	}

	_, err = o.migrateReminder(ctx, old.ID, o.reminderInput(created, phone))
	return created, err != nil, nil
}

func (o *Orchestrator) restore(ctx context.Context, old model.Appointment, phone string, res *RescheduleResult) {
	restored, err := o.createEvent(ctx, old)
	if err != nil {
		o.Logger.Error("appointment lost: restore after failed reschedule failed",
			"err", err, "event_id", old.ID, "date", old.Date.String(), "time", old.StartTime.String(), "client", old.ClientName)
		return
	}
	res.Restored++
	if _, err := o.migrateReminder(ctx, old.ID, o.reminderInput(restored, phone)); err != nil {
		res.ReminderErrors++
	}
}
