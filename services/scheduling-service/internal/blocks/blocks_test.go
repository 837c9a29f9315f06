package blocks

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/civil"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
)

var lunch = model.RecurringBlockRule{
	ID:     "r1",
	Reason: "Almoço",
	PerWeekday: map[time.Weekday]model.WeekdayWindow{
		time.Monday:    {Enabled: true, StartTime: civil.MustClock("12:00"), EndTime: civil.MustClock("13:00")},
		time.Wednesday: {Enabled: true, StartTime: civil.MustClock("12:30"), EndTime: civil.MustClock("13:30")},
		time.Friday:    {Enabled: false, StartTime: civil.MustClock("12:00"), EndTime: civil.MustClock("13:00")},
	},
}

// 2030-01-07 is a Monday.
var from = civil.Date{Year: 2030, Month: time.January, Day: 7}

func TestMaterialize_RollingHorizon(t *testing.T) {
	got := Materialize(lunch, from, 14, nil)
	if len(got) != 4 {
		t.Fatalf("expected 2 Mondays + 2 Wednesdays, got %d: %+v", len(got), got)
	}
	for _, b := range got {
		if wd := b.Date.Weekday(); wd != time.Monday && wd != time.Wednesday {
			t.Fatalf("unexpected weekday %s", wd)
		}
		if b.RuleID != "r1" || b.Reason != "Almoço" {
			t.Fatalf("rule provenance missing: %+v", b)
		}
	}
}

func TestMaterialize_Idempotent(t *testing.T) {
	first := Materialize(lunch, from, 30, nil)
	if again := Materialize(lunch, from, 30, first); len(again) != 0 {
		t.Fatalf("second run produced %d blocks", len(again))
	}
	// a manual block at the same slot also suppresses the rule's copy
	manual := model.Block{Date: from, StartTime: civil.MustClock("12:00"), EndTime: civil.MustClock("13:00"), Reason: "manual"}
	if got := Materialize(lunch, from, 1, []model.Block{manual}); len(got) != 0 {
		t.Fatalf("expected identical manual block to be respected, got %+v", got)
	}
}

type memStore struct {
	rules  []model.RecurringBlockRule
	blocks []model.Block
}

func (m *memStore) RecurringBlockRules(context.Context) ([]model.RecurringBlockRule, error) {
	return m.rules, nil
}

func (m *memStore) BlocksBetween(_ context.Context, a, b civil.Date) ([]model.Block, error) {
	var out []model.Block
	for _, bl := range m.blocks {
		if !bl.Date.Before(a) && !bl.Date.After(b) {
			out = append(out, bl)
		}
	}
	return out, nil
}

func (m *memStore) InsertBlock(_ context.Context, b model.Block) (model.Block, error) {
	m.blocks = append(m.blocks, b)
	return b, nil
}

func TestJob_RunOnceTwice(t *testing.T) {
	store := &memStore{rules: []model.RecurringBlockRule{lunch}}
	j := NewJob(store, 30, time.UTC, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	j.now = func() time.Time { return from.In(time.UTC).Add(8 * time.Hour) }

	n, err := j.RunOnce(context.Background())
	if err != nil || n == 0 {
		t.Fatalf("first run: %d %v", n, err)
	}
	n2, err := j.RunOnce(context.Background())
	if err != nil || n2 != 0 {
		t.Fatalf("second run should insert nothing, got %d %v", n2, err)
	}
	if len(store.blocks) != n {
		t.Fatalf("expected %d stored blocks, got %d", n, len(store.blocks))
	}
}

func TestJob_StartRejectsBadSchedule(t *testing.T) {
	j := NewJob(&memStore{}, 30, time.UTC, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := j.Start(ctx, "not a cron"); err == nil {
		t.Fatalf("expected schedule error")
	}
}
