// Package orchestrator runs the booking use-cases against the calendar store. Every
// appointment mutation goes to the calendar first; reminders, client messages and in-app
// events follow best-effort and are reported, never rolled back.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/calendar"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/catalog"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/civil"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/metrics"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/names"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/notify"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/reminders"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/orchestrator"

// AppointmentSource reads appointments back from the calendar.
type AppointmentSource interface {
	AppointmentsBetween(ctx context.Context, from, to civil.Date) ([]model.Appointment, error)
	Appointment(ctx context.Context, id string) (model.Appointment, error)
}

type SlotChecker interface {
	Check(ctx context.Context, appt model.Appointment) (availability.Occupied, bool, error)
}

type ReminderLifecycle interface {
	Create(ctx context.Context, in reminders.Input) (reminders.Outcome, error)
	Update(ctx context.Context, in reminders.Input) (reminders.Outcome, error)
	Migrate(ctx context.Context, oldEventID string, in reminders.Input) (reminders.Outcome, error)
	PhoneForEvent(ctx context.Context, eventID string) (string, error)
}

type Directory interface {
	Clients(ctx context.Context) ([]model.Client, error)
	Catalog(ctx context.Context) (*catalog.Catalog, error)
}

type Deps struct {
	Calendar     calendar.Store
	Appointments AppointmentSource
	Slots        SlotChecker
	Reminders    ReminderLifecycle
	Directory    Directory
	Dispatcher   notify.Dispatcher
	Notifier     notify.Notifier
	Metrics      *metrics.SchedulingMetrics
	Logger       *slog.Logger
}

type Config struct {
	Location *time.Location
	// SeriesHorizonDays bounds the look-ahead when collecting series members.
	SeriesHorizonDays int
	// MaxOccurrences caps a single recurring booking request.
	MaxOccurrences int
	// StepTimeout bounds each calendar, reminder, message and in-app call.
	StepTimeout time.Duration
}

type Orchestrator struct {
	Deps
	loc            *time.Location
	horizon        int
	maxOccurrences int
	stepTimeout    time.Duration
	tracer         trace.Tracer
}

func New(deps Deps, cfg Config) *Orchestrator {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SeriesHorizonDays <= 0 {
		cfg.SeriesHorizonDays = 180
	}
	if cfg.MaxOccurrences <= 0 {
		cfg.MaxOccurrences = 52
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = 10 * time.Second
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = notify.NewNoopSender()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Noop{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Orchestrator{
		Deps:           deps,
		loc:            cfg.Location,
		horizon:        cfg.SeriesHorizonDays,
		maxOccurrences: cfg.MaxOccurrences,
		stepTimeout:    cfg.StepTimeout,
		tracer:         otel.Tracer(tracerName),
	}
}

func (o *Orchestrator) Location() *time.Location {
	return o.loc
}

// run wraps a use-case in a span and records its outcome. The use-case runs detached
// from the caller's cancellation: once the first calendar mutation is made, every target
// is processed and counted. Each external call is bounded by step instead.
func (o *Orchestrator) run(ctx context.Context, useCase string, fn func(ctx context.Context, span trace.Span) error) error {
	started := time.Now()
	ctx = context.WithoutCancel(ctx)
	ctx, span := o.tracer.Start(ctx, "orchestrator."+useCase)
	defer span.End()

	err := fn(ctx, span)
	outcome := "ok"
	if err != nil {
		outcome = errorKind(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	o.Metrics.ObserveUseCase(useCase, outcome, started)
	return err
}

func (o *Orchestrator) step(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.stepTimeout)
}

// resolvePhone tries the explicit phone, then the reminder mapping of eventID, then an
// unambiguous client directory match on name.
func (o *Orchestrator) resolvePhone(ctx context.Context, explicit, eventID, clientName string) string {
	if p := notify.NormalizePhone(explicit); p != "" {
		return p
	}
	if eventID != "" && o.Reminders != nil {
		if p, err := o.Reminders.PhoneForEvent(ctx, eventID); err == nil && p != "" {
			return notify.NormalizePhone(p)
		}
	}
	if clientName == "" || o.Directory == nil {
		return ""
	}
	clients, err := o.Directory.Clients(ctx)
	if err != nil {
		o.Logger.Warn("client directory lookup failed", "err", err)
		return ""
	}
	m := names.ResolveClient(clientName, clients)
	if m.Client == nil || m.Ambiguous {
		return ""
	}
	return notify.NormalizePhone(m.Client.Phone)
}

// send dispatches one client message and reports whether it went out.
func (o *Orchestrator) send(ctx context.Context, kind, phone, message string) bool {
	if phone == "" {
		return false
	}
	ctx, cancel := o.step(ctx)
	defer cancel()
	err := o.Dispatcher.Send(ctx, phone, message)
	o.Metrics.ObserveMessage(kind, err)
	if err != nil {
		o.Logger.Warn("client message failed", "err", err, "kind", kind, "provider", o.Dispatcher.ProviderID())
		return false
	}
	return true
}

func (o *Orchestrator) emit(ctx context.Context, ev notify.Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	ctx, cancel := o.step(ctx)
	defer cancel()
	o.Notifier.Emit(ctx, ev)
}

func (o *Orchestrator) createReminder(ctx context.Context, in reminders.Input) (reminders.Outcome, error) {
	ctx, cancel := o.step(ctx)
	defer cancel()
	outcome, err := o.Reminders.Create(ctx, in)
	o.Metrics.ObserveReminder(string(outcome))
	return outcome, err
}

func (o *Orchestrator) updateReminder(ctx context.Context, in reminders.Input) (reminders.Outcome, error) {
	ctx, cancel := o.step(ctx)
	defer cancel()
	outcome, err := o.Reminders.Update(ctx, in)
	o.Metrics.ObserveReminder(string(outcome))
	return outcome, err
}

func (o *Orchestrator) migrateReminder(ctx context.Context, oldEventID string, in reminders.Input) (reminders.Outcome, error) {
	ctx, cancel := o.step(ctx)
	defer cancel()
	outcome, err := o.Reminders.Migrate(ctx, oldEventID, in)
	o.Metrics.ObserveReminder(string(outcome))
	return outcome, err
}

func (o *Orchestrator) reminderInput(a model.Appointment, phone string) reminders.Input {
	return reminders.Input{
		EventID:         a.ID,
		Phone:           phone,
		ClientName:      a.ClientName,
		Service:         a.Service,
		AppointmentTime: a.Start(o.loc),
	}
}

func (o *Orchestrator) createEvent(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	ctx, cancel := o.step(ctx)
	defer cancel()
	ev, err := o.Calendar.Create(ctx, calendar.FromAppointment(a, o.loc))
	o.Metrics.ObserveCalendar("create", err)
	if err != nil {
		return model.Appointment{}, err
	}
	a.ID = ev.ID
	return a, nil
}

func (o *Orchestrator) deleteEvent(ctx context.Context, id string) error {
	ctx, cancel := o.step(ctx)
	defer cancel()
	err := o.Calendar.Delete(ctx, id)
	o.Metrics.ObserveCalendar("delete", err)
	return err
}

func (o *Orchestrator) durationFor(ctx context.Context, service string) int {
	if o.Directory == nil {
		return catalog.DefaultDurationMinutes
	}
	cat, err := o.Directory.Catalog(ctx)
	if err != nil {
		o.Logger.Warn("catalog lookup failed", "err", err)
		return catalog.DefaultDurationMinutes
	}
	d, _ := cat.DurationFor(service)
	return d
}
