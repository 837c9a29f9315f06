// Package calendar adapts the external calendar store. Events are append/delete only; an
// appointment is encoded in the event summary as "<service> - <client>".
package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/civil"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
)

var ErrEventNotFound = errors.New("calendar event not found")

type Event struct {
	ID          string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

type NewEvent struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// Store is the calendar collaborator. Ids are minted by the store.
type Store interface {
	Create(ctx context.Context, ev NewEvent) (Event, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (Event, error)
	List(ctx context.Context, timeMin, timeMax time.Time) ([]Event, error)
}

const (
	summarySeparator = " - "
	phoneLabel       = "Telefone:"
	statusLabel      = "Status:"
)

func Summary(service, client string) string {
	return strings.TrimSpace(service) + summarySeparator + strings.TrimSpace(client)
}

// ParseSummary splits at the first separator. Service names with a dash therefore end up
// partly in the client name; the calendar format leaves no better option.
func ParseSummary(s string) (service, client string, ok bool) {
	service, client, ok = strings.Cut(s, summarySeparator)
	if !ok {
		return strings.TrimSpace(s), "", false
	}
	return strings.TrimSpace(service), strings.TrimSpace(client), true
}

func Description(phone string, status model.Status) string {
	var b strings.Builder
	if phone = strings.TrimSpace(phone); phone != "" {
		fmt.Fprintf(&b, "%s %s\n", phoneLabel, phone)
	}
	label := "confirmado"
	if status == model.StatusPending {
		label = "pendente"
	}
	fmt.Fprintf(&b, "%s %s", statusLabel, label)
	return b.String()
}

func parseDescription(desc string) (phone string, status model.Status) {
	status = model.StatusConfirmed
	for _, line := range strings.Split(desc, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, phoneLabel):
			phone = strings.TrimSpace(strings.TrimPrefix(line, phoneLabel))
		case strings.HasPrefix(line, statusLabel):
			status = model.ParseStatus(strings.TrimPrefix(line, statusLabel))
		}
	}
	return phone, status
}

func FromAppointment(a model.Appointment, loc *time.Location) NewEvent {
	return NewEvent{
		Summary:     Summary(a.Service, a.ClientName),
		Description: Description(a.ClientPhone, a.Status),
		Start:       a.Start(loc),
		End:         a.End(loc),
	}
}

// ToAppointment derives an appointment from an event. Events that do not follow the summary
// format are reported with ok=false; they still occupy time but carry no client.
func ToAppointment(ev Event, loc *time.Location) (model.Appointment, bool) {
	service, client, ok := ParseSummary(ev.Summary)
	start, end := ev.Start.In(loc), ev.End.In(loc)
	phone, status := parseDescription(ev.Description)
	a := model.Appointment{
		ID:          ev.ID,
		ClientName:  client,
		ClientPhone: phone,
		Service:     service,
		Date:        civil.DateOf(start),
		StartTime:   civil.ClockOf(start),
		EndTime:     civil.ClockOf(end),
		Status:      status,
	}
	if civil.DateOf(end) != a.Date {
		a.EndTime = civil.Clock(24 * 60)
	}
	return a, ok
}

// Reader exposes the store as appointments in the business's local time.
type Reader struct {
	store Store
	loc   *time.Location
}

func NewReader(store Store, loc *time.Location) *Reader {
	if loc == nil {
		loc = time.UTC
	}
	return &Reader{store: store, loc: loc}
}

// AppointmentsBetween lists appointments on the inclusive civil date range.
func (r *Reader) AppointmentsBetween(ctx context.Context, from, to civil.Date) ([]model.Appointment, error) {
	events, err := r.store.List(ctx, from.In(r.loc), to.AddDays(1).In(r.loc))
	if err != nil {
		return nil, err
	}
	out := make([]model.Appointment, 0, len(events))
	for _, ev := range events {
		a, _ := ToAppointment(ev, r.loc)
		out = append(out, a)
	}
	return out, nil
}

// Appointment loads a single event.
func (r *Reader) Appointment(ctx context.Context, id string) (model.Appointment, error) {
	ev, err := r.store.Get(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	a, _ := ToAppointment(ev, r.loc)
	return a, nil
}

func (r *Reader) Exists(ctx context.Context, id string) (bool, error) {
	_, err := r.store.Get(ctx, id)
	if errors.Is(err, ErrEventNotFound) {
		return false, nil
	}
	return err == nil, err
}
