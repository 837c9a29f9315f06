package notify

import (
	"context"
	"time"
)

type EventType string

const (
	EventBooked             EventType = "appointment.booked"
	EventRecurringBooked    EventType = "appointment.recurring_booked"
	EventCancelled          EventType = "appointment.cancelled"
	EventSeriesCancelled    EventType = "appointment.series_cancelled"
	EventRescheduled        EventType = "appointment.rescheduled"
	EventSeriesRescheduled  EventType = "appointment.series_rescheduled"
	EventReminderDispatched EventType = "reminder.sent"
)

// Event is an in-app notification for the dashboard. Delivery is fire-and-forget.
type Event struct {
	Type       EventType         `json:"type"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	EventIDs   []string          `json:"event_ids,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Notifier emits in-app events. Implementations log their own failures.
type Notifier interface {
	Emit(ctx context.Context, ev Event)
}

type Noop struct{}

func (Noop) Emit(context.Context, Event) {}

// Multi fans one event out to every notifier in order.
type Multi []Notifier

func (m Multi) Emit(ctx context.Context, ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	for _, n := range m {
		if n != nil {
			n.Emit(ctx, ev)
		}
	}
}
