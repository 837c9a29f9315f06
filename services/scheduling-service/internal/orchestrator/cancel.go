package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/calendar"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/notify"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/series"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Mode string

const (
	ModeSingle Mode = "single"
	ModeSeries Mode = "series"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeSingle:
		return ModeSingle, nil
	case ModeSeries:
		return ModeSeries, nil
	default:
		return "", &ValidationError{Field: "mode", Reason: "must be single or series"}
	}
}

type CancelResult struct {
	DeletedCount int
	ErrorCount   int
	WhatsAppSent bool
	DeletedIDs   []string
	// Ambiguous is set when a series member matched only by prefix or first name.
	Ambiguous bool
}

// Cancel deletes the appointment, plus its future series members in series mode. Every
// target is attempted; one client message and one in-app event follow when anything was
// deleted. The error is set only when nothing could be deleted.
func (o *Orchestrator) Cancel(ctx context.Context, eventID string, mode Mode) (CancelResult, error) {
	var res CancelResult
	err := o.run(ctx, "cancel", func(ctx context.Context, span trace.Span) error {
		anchor, err := o.load(ctx, eventID)
		if err != nil {
			return err
		}
		targets, ambiguous, err := o.targets(ctx, anchor, mode)
		if err != nil {
			return err
		}
		res.Ambiguous = ambiguous
		span.SetAttributes(attribute.String("mode", string(mode)), attribute.Int("targets", len(targets)))

		// Resolve before deleting: the description carrying the phone goes with the event.
		phone := o.resolvePhone(ctx, anchor.ClientPhone, anchor.ID, anchor.ClientName)

		var firstErr error
		for _, t := range targets {
			if err := o.deleteEvent(ctx, t.ID); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				o.Logger.Warn("calendar delete failed", "err", err, "event_id", t.ID)
				res.ErrorCount++
				continue
			}
			res.DeletedCount++
			res.DeletedIDs = append(res.DeletedIDs, t.ID)
		}
		if res.DeletedCount == 0 {
			return upstream("calendar delete", firstErr)
		}

		msg := notify.CancellationMessage(anchor)
		evType := notify.EventCancelled
		if mode == ModeSeries && res.DeletedCount > 1 {
			msg = notify.SeriesCancellationMessage(anchor, res.DeletedCount)
			evType = notify.EventSeriesCancelled
		}
		res.WhatsAppSent = o.send(ctx, "cancellation", phone, msg)

		o.emit(ctx, notify.Event{
			Type:     evType,
			Title:    "Agendamento cancelado",
			Message:  fmt.Sprintf("%s - %s: %d cancelado(s) a partir de %s", anchor.Service, anchor.ClientName, res.DeletedCount, anchor.Date),
			EventIDs: res.DeletedIDs,
			Attributes: map[string]string{
				"deleted": strconv.Itoa(res.DeletedCount),
				"errors":  strconv.Itoa(res.ErrorCount),
			},
		})
		return nil
	})
	return res, err
}

// SeriesPreview lists the future members that a series action on eventID would touch.
func (o *Orchestrator) SeriesPreview(ctx context.Context, eventID string) (model.Appointment, []series.Match, error) {
	anchor, err := o.load(ctx, eventID)
	if err != nil {
		return model.Appointment{}, nil, err
	}
	matches, err := o.seriesOf(ctx, anchor)
	if err != nil {
		return model.Appointment{}, nil, err
	}
	return anchor, matches, nil
}

func (o *Orchestrator) load(ctx context.Context, eventID string) (model.Appointment, error) {
	if eventID == "" {
		return model.Appointment{}, missing("event_id")
	}
	a, err := o.Appointments.Appointment(ctx, eventID)
	if errors.Is(err, calendar.ErrEventNotFound) {
		return model.Appointment{}, ErrNotFound
	}
	if err != nil {
		return model.Appointment{}, upstream("calendar get", err)
	}
	return a, nil
}

func (o *Orchestrator) seriesOf(ctx context.Context, anchor model.Appointment) ([]series.Match, error) {
	candidates, err := o.Appointments.AppointmentsBetween(ctx, anchor.Date.AddDays(1), anchor.Date.AddDays(o.horizon))
	if err != nil {
		return nil, upstream("calendar list", err)
	}
	return series.Find(anchor, candidates), nil
}

// targets returns the anchor followed by its series members in date order.
func (o *Orchestrator) targets(ctx context.Context, anchor model.Appointment, mode Mode) ([]model.Appointment, bool, error) {
	out := []model.Appointment{anchor}
	if mode != ModeSeries {
		return out, false, nil
	}
	matches, err := o.seriesOf(ctx, anchor)
	if err != nil {
		return nil, false, err
	}
	ambiguous := false
	for _, m := range matches {
		ambiguous = ambiguous || m.Ambiguous()
	}
	return append(out, series.Appointments(matches)...), ambiguous, nil
}
