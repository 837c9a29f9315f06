package series

import (
	"testing"
	"time"

	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/civil"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
)

var jan1 = civil.Date{Year: 2024, Month: time.January, Day: 1}

func appt(id, client, service string, date civil.Date, start string) model.Appointment {
	s := civil.MustClock(start)
	return model.Appointment{ID: id, ClientName: client, Service: service, Date: date, StartTime: s, EndTime: s.Add(30)}
}

func TestFind_WeeklySeries(t *testing.T) {
	anchor := appt("e1", "Gabriel Silva", "Corte", jan1, "10:00")
	all := []model.Appointment{
		appt("e4", "Gabriel Silva", "Corte", jan1.AddDays(21), "10:00"),
		anchor,
		appt("e2", "gabriel silva", "Corte", jan1.AddDays(7), "10:00"),
		appt("e3", "Gabriel", "Corte + Barba", jan1.AddDays(14), "10:00"),
		appt("x1", "Gabriel Silva", "Corte", jan1.AddDays(8), "10:00"),  // other weekday
		appt("x2", "Gabriel Silva", "Corte", jan1.AddDays(28), "11:00"), // other time
		appt("x3", "Maria", "Corte", jan1.AddDays(35), "10:00"),         // other client
		appt("x4", "Gabriel Silva", "Manicure", jan1.AddDays(42), "10:00"),
	}
	got := Find(anchor, all)
	if len(got) != 3 {
		t.Fatalf("expected 3 matches, got %d: %+v", len(got), got)
	}
	for i, want := range []string{"e2", "e3", "e4"} {
		if got[i].Appointment.ID != want {
			t.Fatalf("match %d: expected %s, got %s", i, want, got[i].Appointment.ID)
		}
	}
	if got[0].Ambiguous() {
		t.Fatalf("case-only difference should be an exact match")
	}
	if !got[1].Ambiguous() {
		t.Fatalf("prefix match should be flagged ambiguous")
	}
}

func TestFind_Irreflexive(t *testing.T) {
	anchor := appt("e1", "Ana", "Corte", jan1, "09:00")
	if got := Find(anchor, []model.Appointment{anchor}); len(got) != 0 {
		t.Fatalf("anchor matched itself: %+v", got)
	}
}

func TestFind_ExcludesPastAndSameDate(t *testing.T) {
	anchor := appt("e1", "Ana", "Corte", jan1.AddDays(14), "09:00")
	all := []model.Appointment{
		appt("p1", "Ana", "Corte", jan1, "09:00"),
		appt("p2", "Ana", "Corte", jan1.AddDays(7), "09:00"),
		appt("p3", "Ana", "Corte", jan1.AddDays(14), "09:00"),
	}
	if got := Find(anchor, all); len(got) != 0 {
		t.Fatalf("expected no matches, got %+v", got)
	}
}

func TestFind_PrefixFalsePositiveIsFlagged(t *testing.T) {
	anchor := appt("e1", "Ana", "Corte", jan1, "09:00")
	got := Find(anchor, []model.Appointment{appt("e2", "Anabela", "Corte", jan1.AddDays(7), "09:00")})
	if len(got) != 1 || !got[0].Client.Ambiguous {
		t.Fatalf("expected one ambiguous match, got %+v", got)
	}
}

func TestKeyOf(t *testing.T) {
	k := KeyOf(appt("e1", "  João  Silva ", "Corte", jan1, "10:00"))
	if k.Client != "joao silva" || k.Weekday != time.Monday || k.StartTime != civil.MustClock("10:00") {
		t.Fatalf("unexpected key %+v", k)
	}
}
