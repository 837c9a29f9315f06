package availability

import (
	"testing"
	"time"

	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/civil"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
)

func hours(start, end string) *model.BusinessHours {
	return &model.BusinessHours{Weekday: time.Monday, StartTime: civil.MustClock(start), EndTime: civil.MustClock(end)}
}

func TestGenerateSlots_Basic(t *testing.T) {
	slots := GenerateSlots(hours("09:00", "10:00"), 30, CheckGranularityMinutes)
	// 09:00 .. 09:30 fit; 09:40 would end 10:10.
	if len(slots) != 4 {
		t.Fatalf("expected 4 slots, got %d: %v", len(slots), slots)
	}
	if slots[0] != civil.MustClock("09:00") || slots[3] != civil.MustClock("09:30") {
		t.Fatalf("unexpected slots %v", slots)
	}
}

func TestGenerateSlots_NeverPastClosing(t *testing.T) {
	for _, d := range []int{10, 25, 40, 45, 60, 90, 600} {
		h := hours("09:00", "19:00")
		for _, s := range GenerateSlots(h, d, CheckGranularityMinutes) {
			if s.Add(d) > h.EndTime {
				t.Fatalf("slot %s with duration %d ends after closing", s, d)
			}
		}
	}
}

func TestGenerateSlots_ClosedOrMissing(t *testing.T) {
	if got := GenerateSlots(nil, 30, 10); len(got) != 0 {
		t.Fatalf("expected no slots for missing hours, got %v", got)
	}
	h := hours("09:00", "19:00")
	h.Closed = true
	if got := GenerateSlots(h, 30, 10); len(got) != 0 {
		t.Fatalf("expected no slots when closed, got %v", got)
	}
	if got := GenerateSlots(hours("09:00", "09:20"), 30, 10); len(got) != 0 {
		t.Fatalf("expected no slots when duration exceeds window, got %v", got)
	}
}

func TestOverlaps_SymmetricAndHalfOpen(t *testing.T) {
	iv := func(a, b string) Interval { return Interval{Start: civil.MustClock(a), End: civil.MustClock(b)} }
	pairs := [][2]Interval{
		{iv("09:00", "09:30"), iv("09:30", "10:00")},
		{iv("09:00", "10:00"), iv("09:15", "09:45")},
		{iv("09:00", "09:40"), iv("09:30", "10:00")},
		{iv("08:00", "08:30"), iv("12:00", "13:00")},
	}
	for _, p := range pairs {
		if Overlaps(p[0], p[1]) != Overlaps(p[1], p[0]) {
			t.Fatalf("overlap not symmetric for %v", p)
		}
	}
	if Overlaps(iv("09:00", "09:30"), iv("09:30", "10:00")) {
		t.Fatal("back-to-back intervals must not conflict")
	}
	if !Overlaps(iv("09:00", "09:40"), iv("09:30", "10:00")) {
		t.Fatal("expected overlap")
	}
}

func TestFirstConflict(t *testing.T) {
	occ := []Occupied{
		{Interval: Interval{Start: civil.MustClock("10:00"), End: civil.MustClock("10:40")}, Kind: KindAppointment, Ref: "a1"},
		{Interval: Interval{Start: civil.MustClock("12:00"), End: civil.MustClock("13:00")}, Kind: KindBlock, Ref: "b1"},
	}
	c, ok := FirstConflict(Interval{Start: civil.MustClock("12:30"), End: civil.MustClock("13:10")}, occ)
	if !ok || c.Ref != "b1" {
		t.Fatalf("expected block conflict, got %+v %v", c, ok)
	}
	if _, ok := FirstConflict(Interval{Start: civil.MustClock("10:40"), End: civil.MustClock("11:20")}, occ); ok {
		t.Fatal("expected no conflict right after an appointment")
	}
}
