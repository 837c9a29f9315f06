package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/catalog"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/civil"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
)

var monday = civil.Date{Year: 2030, Month: time.January, Day: 7}

func corteCatalog() *catalog.Catalog {
	return catalog.New([]model.ServiceItem{{ID: "s1", Name: "Corte", DurationMinutes: 40}}, 30)
}

func availableSet(p DayPlan) map[civil.Clock]bool {
	out := map[civil.Clock]bool{}
	for _, s := range p.Slots {
		out[s.Time] = s.Available
	}
	return out
}

func TestPlan_AppointmentExcludesOverlappingStarts(t *testing.T) {
	appt := model.Appointment{
		ID: "evt-1", ClientName: "Maria", Service: "Corte", Date: monday,
		StartTime: civil.MustClock("10:00"), EndTime: civil.MustClock("10:40"),
	}
	plan := Plan(DayRequest{
		Date:            monday,
		Hours:           hours("09:00", "19:00"),
		Appointments:    []model.Appointment{appt},
		DurationMinutes: 40,
		Catalog:         corteCatalog(),
	})
	if plan.Reason != ReasonNone {
		t.Fatalf("unexpected reason %q", plan.Reason)
	}
	got := availableSet(plan)
	for _, s := range []string{"09:00", "09:10", "09:20", "10:40", "18:20"} {
		if !got[civil.MustClock(s)] {
			t.Fatalf("expected %s available", s)
		}
	}
	for _, s := range []string{"09:30", "09:50", "10:00", "10:30"} {
		if got[civil.MustClock(s)] {
			t.Fatalf("expected %s taken", s)
		}
	}
	if _, ok := got[civil.MustClock("18:30")]; ok {
		t.Fatalf("18:30 + 40min ends after closing and must not be generated")
	}
	for _, s := range plan.Slots {
		if s.Time == civil.MustClock("10:00") {
			if s.Conflict == nil || s.Conflict.Ref != "evt-1" || s.Reason != ReasonTaken {
				t.Fatalf("expected conflict with evt-1, got %+v", s)
			}
		}
	}
}

func TestPlan_VacationIsEmpty(t *testing.T) {
	plan := Plan(DayRequest{Date: monday, Hours: hours("09:00", "19:00"), Vacation: true, DurationMinutes: 30})
	if plan.Reason != ReasonVacation || len(plan.Slots) != 0 {
		t.Fatalf("expected empty vacation plan, got %+v", plan)
	}
}

func TestPlan_Closed(t *testing.T) {
	closed := hours("09:00", "19:00")
	closed.Closed = true
	for _, h := range []*model.BusinessHours{nil, closed} {
		plan := Plan(DayRequest{Date: monday, Hours: h, DurationMinutes: 30})
		if plan.Reason != ReasonClosed || len(plan.Slots) != 0 {
			t.Fatalf("expected closed plan, got %+v", plan)
		}
	}
}

func TestPlan_PendingAndBlocksOccupy(t *testing.T) {
	plan := Plan(DayRequest{
		Date:  monday,
		Hours: hours("09:00", "11:00"),
		Appointments: []model.Appointment{{
			ID: "evt-2", Service: "Unknown", Date: monday, Status: model.StatusPending,
			StartTime: civil.MustClock("09:00"), EndTime: civil.MustClock("09:30"),
		}},
		Blocks: []model.Block{{
			ID: "b1", Date: monday, StartTime: civil.MustClock("10:00"), EndTime: civil.MustClock("11:00"), Reason: "almoço",
		}},
		DurationMinutes: 30,
		Catalog:         corteCatalog(),
	})
	got := availableSet(plan)
	// unmatched service keeps its own end time
	if got[civil.MustClock("09:00")] || got[civil.MustClock("09:20")] {
		t.Fatalf("pending hold should occupy 09:00-09:30: %v", plan.Slots)
	}
	if !got[civil.MustClock("09:30")] {
		t.Fatalf("09:30 should be free")
	}
	if got[civil.MustClock("09:40")] || got[civil.MustClock("10:00")] {
		t.Fatalf("block should occupy from 10:00")
	}
}

func TestPlan_PastSlots(t *testing.T) {
	loc := time.FixedZone("UTC-03:00", -3*3600)
	now := monday.At(civil.MustClock("09:15"), loc)
	plan := Plan(DayRequest{Date: monday, Hours: hours("09:00", "10:00"), DurationMinutes: 30, Now: now, Location: loc})
	for _, s := range plan.Slots {
		past := s.Time < civil.MustClock("09:15")
		if past && (s.Available || s.Reason != ReasonPast) {
			t.Fatalf("%s should be past", s.Time)
		}
		if !past && !s.Available {
			t.Fatalf("%s should be available", s.Time)
		}
	}
	if len(plan.Available()) != 2 {
		t.Fatalf("expected 09:20 and 09:30, got %v", plan.Available())
	}
}

type fakeRecords struct {
	hours     map[time.Weekday]*model.BusinessHours
	vacations map[civil.Date]bool
	blocks    []model.Block
	cat       *catalog.Catalog
	err       error
}

func (f *fakeRecords) BusinessHours(_ context.Context, wd time.Weekday) (*model.BusinessHours, error) {
	return f.hours[wd], f.err
}

func (f *fakeRecords) IsVacation(_ context.Context, d civil.Date) (bool, error) {
	return f.vacations[d], f.err
}

func (f *fakeRecords) BlocksOn(_ context.Context, d civil.Date) ([]model.Block, error) {
	var out []model.Block
	for _, b := range f.blocks {
		if b.Date == d {
			out = append(out, b)
		}
	}
	return out, f.err
}

func (f *fakeRecords) Catalog(context.Context) (*catalog.Catalog, error) {
	return f.cat, f.err
}

type fakeAppointments []model.Appointment

func (f fakeAppointments) AppointmentsBetween(_ context.Context, from, to civil.Date) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range f {
		if !a.Date.Before(from) && !a.Date.After(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func TestPlanner_DayUsesServiceDuration(t *testing.T) {
	rec := &fakeRecords{
		hours: map[time.Weekday]*model.BusinessHours{time.Monday: hours("09:00", "10:00")},
		cat:   corteCatalog(),
	}
	p := NewPlanner(rec, fakeAppointments{}, time.UTC).WithClock(func() time.Time {
		return time.Date(2029, 1, 1, 0, 0, 0, 0, time.UTC)
	})
	plan, err := p.Day(context.Background(), monday, "corte")
	if err != nil {
		t.Fatalf("Day: %v", err)
	}
	if plan.DurationMinutes != 40 {
		t.Fatalf("expected 40 minute duration, got %d", plan.DurationMinutes)
	}
	// 09:00, 09:10, 09:20
	if len(plan.Available()) != 3 {
		t.Fatalf("unexpected slots %v", plan.Available())
	}
}

func TestPlanner_DayPropagatesErrors(t *testing.T) {
	rec := &fakeRecords{err: errors.New("db down")}
	if _, err := NewPlanner(rec, fakeAppointments{}, nil).Day(context.Background(), monday, ""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPlanner_Check(t *testing.T) {
	existing := model.Appointment{
		ID: "evt-1", ClientName: "Maria", Service: "Corte", Date: monday,
		StartTime: civil.MustClock("10:00"), EndTime: civil.MustClock("10:40"),
	}
	rec := &fakeRecords{cat: corteCatalog(), vacations: map[civil.Date]bool{monday.AddDays(1): true}}
	p := NewPlanner(rec, fakeAppointments{existing}, time.UTC)
	ctx := context.Background()

	c, ok, err := p.Check(ctx, model.Appointment{Service: "Corte", Date: monday, StartTime: civil.MustClock("09:30"), EndTime: civil.MustClock("10:10")})
	if err != nil || !ok || c.Ref != "evt-1" {
		t.Fatalf("expected conflict with evt-1, got %+v %v %v", c, ok, err)
	}
	if _, ok, _ := p.Check(ctx, model.Appointment{Service: "Corte", Date: monday, StartTime: civil.MustClock("10:40"), EndTime: civil.MustClock("11:20")}); ok {
		t.Fatalf("back-to-back booking should not conflict")
	}
	// moving an appointment onto itself is fine
	if _, ok, _ := p.Check(ctx, existing); ok {
		t.Fatalf("appointment should not conflict with itself")
	}
	c, ok, _ = p.Check(ctx, model.Appointment{Date: monday.AddDays(1), StartTime: civil.MustClock("09:00"), EndTime: civil.MustClock("09:30")})
	if !ok || c.Kind != KindVacation {
		t.Fatalf("expected vacation conflict, got %+v", c)
	}
}
