package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/catalog"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/civil"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
)

type Reason string

const (
	ReasonNone     Reason = ""
	ReasonVacation Reason = "vacation"
	ReasonClosed   Reason = "closed"
	ReasonPast     Reason = "past"
	ReasonTaken    Reason = "taken"
)

type Slot struct {
	Time      civil.Clock `json:"time"`
	Available bool        `json:"available"`
	Reason    Reason      `json:"reason,omitempty"`
	Conflict  *Occupied   `json:"conflict,omitempty"`
}

// DayPlan keeps the full-day shape so callers can render taken slots as well as open ones.
type DayPlan struct {
	Date            civil.Date `json:"date"`
	Reason          Reason     `json:"reason,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
	Slots           []Slot     `json:"slots"`
}

// Available returns only the bookable starts.
func (p DayPlan) Available() []civil.Clock {
	var out []civil.Clock
	for _, s := range p.Slots {
		if s.Available {
			out = append(out, s.Time)
		}
	}
	return out
}

type DayRequest struct {
	Date            civil.Date
	Hours           *model.BusinessHours
	Vacation        bool
	Blocks          []model.Block
	Appointments    []model.Appointment
	DurationMinutes int
	Catalog         *catalog.Catalog
	// Now, when set, marks starts before it as past. Zero disables the check.
	Now      time.Time
	Location *time.Location
}

// Plan composes slot generation and overlap detection for one date.
func Plan(req DayRequest) DayPlan {
	plan := DayPlan{Date: req.Date, DurationMinutes: req.DurationMinutes, Slots: []Slot{}}
	if req.Vacation {
		plan.Reason = ReasonVacation
		return plan
	}
	if req.Hours == nil || req.Hours.Closed {
		plan.Reason = ReasonClosed
		return plan
	}

	occupied := OccupiedOn(req.Date, req.Blocks, req.Appointments, req.Catalog)
	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}

	for _, start := range GenerateSlots(req.Hours, req.DurationMinutes, CheckGranularityMinutes) {
		slot := Slot{Time: start, Available: true}
		if !req.Now.IsZero() && req.Date.At(start, loc).Before(req.Now) {
			slot.Available = false
			slot.Reason = ReasonPast
		} else if c, ok := FirstConflict(Interval{Start: start, End: start.Add(req.DurationMinutes)}, occupied); ok {
			conflict := c
			slot.Available = false
			slot.Reason = ReasonTaken
			slot.Conflict = &conflict
		}
		plan.Slots = append(plan.Slots, slot)
	}
	return plan
}

// OccupiedOn collects busy intervals for date. Appointments occupy their start plus the
// catalog duration of their service text; pending holds count like confirmed ones.
func OccupiedOn(date civil.Date, blocks []model.Block, appts []model.Appointment, cat *catalog.Catalog) []Occupied {
	var out []Occupied
	for _, b := range blocks {
		if b.Date != date {
			continue
		}
		out = append(out, Occupied{
			Interval: Interval{Start: b.StartTime, End: b.EndTime},
			Kind:     KindBlock,
			Ref:      b.ID,
			Label:    b.Reason,
		})
	}
	for _, a := range appts {
		if a.Date != date {
			continue
		}
		out = append(out, Occupied{
			Interval: Interval{Start: a.StartTime, End: a.StartTime.Add(occupiedMinutes(a, cat))},
			Kind:     KindAppointment,
			Ref:      a.ID,
			Label:    a.Service + " - " + a.ClientName,
		})
	}
	return out
}

func occupiedMinutes(a model.Appointment, cat *catalog.Catalog) int {
	if cat != nil {
		if d, ok := cat.DurationFor(a.Service); ok {
			return d
		}
	}
	if d := a.DurationMinutes(); d > 0 {
		return d
	}
	return catalog.DefaultDurationMinutes
}

// Records is the part of the record store the planner reads.
type Records interface {
	BusinessHours(ctx context.Context, weekday time.Weekday) (*model.BusinessHours, error)
	IsVacation(ctx context.Context, date civil.Date) (bool, error)
	BlocksOn(ctx context.Context, date civil.Date) ([]model.Block, error)
	Catalog(ctx context.Context) (*catalog.Catalog, error)
}

// Appointments lists live appointments, usually by reading the calendar store.
type Appointments interface {
	AppointmentsBetween(ctx context.Context, from, to civil.Date) ([]model.Appointment, error)
}

// Planner re-reads current occupancy on every call. Nothing is held between planning and
// booking, so two concurrent bookings of one slot are still possible.
type Planner struct {
	records Records
	appts   Appointments
	loc     *time.Location
	now     func() time.Time
}

func NewPlanner(records Records, appts Appointments, loc *time.Location) *Planner {
	if loc == nil {
		loc = time.UTC
	}
	return &Planner{records: records, appts: appts, loc: loc, now: time.Now}
}

// WithClock overrides the time source.
func (p *Planner) WithClock(now func() time.Time) *Planner {
	p.now = now
	return p
}

func (p *Planner) Day(ctx context.Context, date civil.Date, serviceText string) (DayPlan, error) {
	cat, err := p.records.Catalog(ctx)
	if err != nil {
		return DayPlan{}, fmt.Errorf("load catalog: %w", err)
	}
	duration, _ := cat.DurationFor(serviceText)

	req := DayRequest{Date: date, DurationMinutes: duration, Catalog: cat, Now: p.now(), Location: p.loc}
	req.Vacation, err = p.records.IsVacation(ctx, date)
	if err != nil {
		return DayPlan{}, fmt.Errorf("load vacation: %w", err)
	}
	if req.Vacation {
		return Plan(req), nil
	}
	req.Hours, err = p.records.BusinessHours(ctx, date.Weekday())
	if err != nil {
		return DayPlan{}, fmt.Errorf("load business hours: %w", err)
	}
	if req.Hours == nil || req.Hours.Closed {
		return Plan(req), nil
	}
	req.Blocks, err = p.records.BlocksOn(ctx, date)
	if err != nil {
		return DayPlan{}, fmt.Errorf("load blocks: %w", err)
	}
	req.Appointments, err = p.appts.AppointmentsBetween(ctx, date, date)
	if err != nil {
		return DayPlan{}, fmt.Errorf("load appointments: %w", err)
	}
	return Plan(req), nil
}

// Check reports the first thing that collides with appt: a vacation day, a block or another
// appointment. Business hours are not enforced here; the owner may book outside them.
func (p *Planner) Check(ctx context.Context, appt model.Appointment) (Occupied, bool, error) {
	vacation, err := p.records.IsVacation(ctx, appt.Date)
	if err != nil {
		return Occupied{}, false, fmt.Errorf("load vacation: %w", err)
	}
	if vacation {
		return Occupied{Interval: Interval{Start: 0, End: civil.Clock(24 * 60)}, Kind: KindVacation}, true, nil
	}
	cat, err := p.records.Catalog(ctx)
	if err != nil {
		return Occupied{}, false, fmt.Errorf("load catalog: %w", err)
	}
	blocks, err := p.records.BlocksOn(ctx, appt.Date)
	if err != nil {
		return Occupied{}, false, fmt.Errorf("load blocks: %w", err)
	}
	appts, err := p.appts.AppointmentsBetween(ctx, appt.Date, appt.Date)
	if err != nil {
		return Occupied{}, false, fmt.Errorf("load appointments: %w", err)
	}
	others := appts[:0:0]
	for _, a := range appts {
		if appt.ID != "" && a.ID == appt.ID {
			continue
		}
		others = append(others, a)
	}
	candidate := Interval{Start: appt.StartTime, End: appt.StartTime.Add(occupiedMinutes(appt, cat))}
	c, ok := FirstConflict(candidate, OccupiedOn(appt.Date, blocks, others, cat))
	return c, ok, nil
}
