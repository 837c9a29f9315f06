// Package reminders owns the mapping from a calendar event to its scheduled reminder and
// keeps it intact across the delete-and-recreate cycle of a reschedule.
package reminders

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/notify"
)

// Store persists reminder rows. Lookups return (nil, nil) when nothing matches.
type Store interface {
	PendingByEvent(ctx context.Context, eventID string) (*model.ScheduledReminder, error)
	LatestByEvent(ctx context.Context, eventID string) (*model.ScheduledReminder, error)
	Insert(ctx context.Context, r model.ScheduledReminder) (model.ScheduledReminder, error)
	Update(ctx context.Context, r model.ScheduledReminder) error
}

type Config struct {
	Enabled  bool
	LeadTime time.Duration
}

// Input describes the appointment a reminder belongs to.
type Input struct {
	EventID         string
	Phone           string
	ClientName      string
	Service         string
	AppointmentTime time.Time
}

// Outcome says what a lifecycle call did to the store.
type Outcome string

const (
	OutcomeSkipped     Outcome = "skipped"
	OutcomePending     Outcome = "pending"
	OutcomeContactOnly Outcome = "contact_only"
	OutcomeUpdated     Outcome = "updated"
	OutcomeMigrated    Outcome = "migrated"
	OutcomeRefreshed   Outcome = "refreshed"
)

// Manager is best-effort: every store error is logged and returned so callers can count
// it, but callers must never let it undo an appointment mutation.
type Manager struct {
	store  Store
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func NewManager(store Store, cfg Config, logger *slog.Logger) *Manager {
	return &Manager{store: store, cfg: cfg, logger: logger, now: time.Now}
}

// WithClock overrides the time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Create writes the reminder for a newly booked event. Without a phone nothing is written.
// When reminders are off or the reminder time already passed the row is contact-only.
// An existing pending row for the same event is updated instead of duplicated.
func (m *Manager) Create(ctx context.Context, in Input) (Outcome, error) {
	in.Phone = notify.NormalizePhone(in.Phone)
	if in.Phone == "" || in.EventID == "" {
		return OutcomeSkipped, nil
	}
	existing, err := m.store.PendingByEvent(ctx, in.EventID)
	if err != nil {
		return m.fail("reminder lookup failed", in.EventID, err)
	}
	if existing != nil {
		return m.rewrite(ctx, existing, in, OutcomeUpdated)
	}

	row := model.ScheduledReminder{CreatedAt: m.now().UTC()}
	copyDetails(&row, in)
	m.schedule(&row)
	if _, err := m.store.Insert(ctx, row); err != nil {
		return m.fail("reminder insert failed", in.EventID, err)
	}
	if row.IsContactOnly() {
		return OutcomeContactOnly, nil
	}
	return OutcomePending, nil
}

// Update applies changed appointment details to the event's pending reminder in place.
// A sent or contact-only row only has its details carried forward; its dispatch state is
// final. With no row at all this is a Create.
func (m *Manager) Update(ctx context.Context, in Input) (Outcome, error) {
	in.Phone = notify.NormalizePhone(in.Phone)
	pending, err := m.store.PendingByEvent(ctx, in.EventID)
	if err != nil {
		return m.fail("reminder lookup failed", in.EventID, err)
	}
	if pending != nil {
		return m.rewrite(ctx, pending, in, OutcomeUpdated)
	}
	latest, err := m.store.LatestByEvent(ctx, in.EventID)
	if err != nil {
		return m.fail("reminder lookup failed", in.EventID, err)
	}
	if latest != nil {
		return m.carry(ctx, latest, in)
	}
	return m.Create(ctx, in)
}

// Migrate moves the reminder of oldEventID onto in.EventID after a reschedule. A pending row
// is re-keyed and re-timed. Otherwise the most recent row is re-keyed with its sent and
// contact-only state intact so the event-to-phone mapping survives. With no prior row this
// is a Create.
func (m *Manager) Migrate(ctx context.Context, oldEventID string, in Input) (Outcome, error) {
	in.Phone = notify.NormalizePhone(in.Phone)
	pending, err := m.store.PendingByEvent(ctx, oldEventID)
	if err != nil {
		return m.fail("reminder lookup failed", oldEventID, err)
	}
	if pending != nil {
		return m.rewrite(ctx, pending, in, OutcomeMigrated)
	}
	latest, err := m.store.LatestByEvent(ctx, oldEventID)
	if err != nil {
		return m.fail("reminder lookup failed", oldEventID, err)
	}
	if latest != nil {
		return m.carry(ctx, latest, in)
	}
	return m.Create(ctx, in)
}

// PhoneForEvent returns the phone recorded for eventID, or "" when none is known.
func (m *Manager) PhoneForEvent(ctx context.Context, eventID string) (string, error) {
	if strings.TrimSpace(eventID) == "" {
		return "", nil
	}
	row, err := m.store.LatestByEvent(ctx, eventID)
	if err != nil {
		m.logger.Warn("reminder phone lookup failed", "err", err, "event_id", eventID)
		return "", err
	}
	if row == nil {
		return "", nil
	}
	return row.ClientPhone, nil
}

// rewrite applies in to a pending row and recomputes when and whether it is sent.
func (m *Manager) rewrite(ctx context.Context, row *model.ScheduledReminder, in Input, outcome Outcome) (Outcome, error) {
	copyDetails(row, in)
	m.schedule(row)
	if err := m.store.Update(ctx, *row); err != nil {
		return m.fail("reminder update failed", in.EventID, err)
	}
	return outcome, nil
}

// carry applies in to a sent or contact-only row. Sent, SentAt, Error and ReminderTime
// are left as they are.
func (m *Manager) carry(ctx context.Context, row *model.ScheduledReminder, in Input) (Outcome, error) {
	copyDetails(row, in)
	if err := m.store.Update(ctx, *row); err != nil {
		return m.fail("reminder update failed", in.EventID, err)
	}
	return OutcomeRefreshed, nil
}

// copyDetails copies appointment details onto row. Missing fields in "in" keep the row's
// values so a migrate without a phone keeps the mapping.
func copyDetails(row *model.ScheduledReminder, in Input) {
	if in.EventID != "" {
		row.EventID = in.EventID
	}
	if in.Phone != "" {
		row.ClientPhone = in.Phone
	}
	if in.ClientName != "" {
		row.ClientName = in.ClientName
	}
	if in.Service != "" {
		row.ServiceName = in.Service
	}
	if !in.AppointmentTime.IsZero() {
		row.AppointmentTime = in.AppointmentTime.UTC()
	}
}

// schedule computes the reminder time and the dispatch state of a new or pending row.
func (m *Manager) schedule(row *model.ScheduledReminder) {
	now := m.now().UTC()
	row.ReminderTime = row.AppointmentTime.Add(-m.cfg.LeadTime)

	switch {
	case !m.cfg.Enabled:
		markContactOnly(row, model.ContactOnlyDisabled, now)
	case !row.ReminderTime.After(now):
		markContactOnly(row, model.ContactOnlyPassed, now)
	default:
		row.Sent = false
		row.SentAt = nil
		row.Error = ""
		row.Attempts = 0
	}
}

func markContactOnly(row *model.ScheduledReminder, reason string, now time.Time) {
	row.Sent = true
	row.SentAt = &now
	row.Error = reason
}

func (m *Manager) fail(msg string, eventID string, err error) (Outcome, error) {
	m.logger.Error(msg, "err", err, "event_id", eventID)
	return "", err
}
