package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/civil"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func defaults() map[time.Weekday]model.BusinessHours {
	return map[time.Weekday]model.BusinessHours{
		time.Monday: {Weekday: time.Monday, StartTime: civil.MustClock("09:00"), EndTime: civil.MustClock("18:00")},
	}
}

func TestBusinessHours_StoredAndFallback(t *testing.T) {
	mock := newMock(t)
	repo := NewRepository(mock, defaults(), 30)

	mock.ExpectQuery("FROM business_hours").WithArgs(int(time.Tuesday)).
		WillReturnRows(pgxmock.NewRows([]string{"start", "end", "closed"}).AddRow("08:30", "17:00", false))
	h, err := repo.BusinessHours(context.Background(), time.Tuesday)
	if err != nil || h == nil {
		t.Fatalf("unexpected result %v %v", h, err)
	}
	if h.StartTime != civil.MustClock("08:30") || h.EndTime != civil.MustClock("17:00") || h.Weekday != time.Tuesday {
		t.Fatalf("unexpected hours %+v", h)
	}

	mock.ExpectQuery("FROM business_hours").WithArgs(int(time.Monday)).WillReturnError(pgx.ErrNoRows)
	h, err = repo.BusinessHours(context.Background(), time.Monday)
	if err != nil || h == nil || h.EndTime != civil.MustClock("18:00") {
		t.Fatalf("expected default hours, got %+v %v", h, err)
	}

	mock.ExpectQuery("FROM business_hours").WithArgs(int(time.Sunday)).WillReturnError(pgx.ErrNoRows)
	h, err = repo.BusinessHours(context.Background(), time.Sunday)
	if err != nil || h != nil {
		t.Fatalf("expected unknown weekday to be nil, got %+v %v", h, err)
	}

	mock.ExpectQuery("FROM business_hours").WithArgs(int(time.Friday)).WillReturnError(errors.New("conn reset"))
	if _, err := repo.BusinessHours(context.Background(), time.Friday); err == nil {
		t.Fatal("expected query error to surface")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIsVacation(t *testing.T) {
	mock := newMock(t)
	repo := NewRepository(mock, nil, 30)

	mock.ExpectQuery("FROM vacation_days").WithArgs("2030-01-07").
		WillReturnRows(pgxmock.NewRows([]string{"one"}).AddRow(1))
	mock.ExpectQuery("FROM vacation_days").WithArgs("2030-01-08").WillReturnError(pgx.ErrNoRows)

	on, err := repo.IsVacation(context.Background(), civil.Date{Year: 2030, Month: time.January, Day: 7})
	if err != nil || !on {
		t.Fatalf("expected vacation, got %v %v", on, err)
	}
	on, err = repo.IsVacation(context.Background(), civil.Date{Year: 2030, Month: time.January, Day: 8})
	if err != nil || on {
		t.Fatalf("expected working day, got %v %v", on, err)
	}
}

func TestBlocksBetween(t *testing.T) {
	mock := newMock(t)
	repo := NewRepository(mock, nil, 30)

	rows := pgxmock.NewRows([]string{"id", "day", "start", "end", "reason", "rule_id"}).
		AddRow("b1", "2030-01-07", "12:00", "13:00", "almoço", "rule-1").
		AddRow("b2", "2030-01-08", "15:00", "15:30", "médico", "")
	mock.ExpectQuery("FROM blocks").WithArgs("2030-01-07", "2030-01-08").WillReturnRows(rows)

	from := civil.Date{Year: 2030, Month: time.January, Day: 7}
	got, err := repo.BlocksBetween(context.Background(), from, from.AddDays(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].RuleID != "rule-1" || got[1].RuleID != "" {
		t.Fatalf("unexpected blocks %+v", got)
	}
	if got[0].StartTime != civil.MustClock("12:00") || got[1].Date != from.AddDays(1) {
		t.Fatalf("unexpected block times %+v", got)
	}
}

func TestInsertBlock(t *testing.T) {
	mock := newMock(t)
	repo := NewRepository(mock, nil, 30)

	b := model.Block{
		Date:      civil.Date{Year: 2030, Month: time.January, Day: 7},
		StartTime: civil.MustClock("12:00"),
		EndTime:   civil.MustClock("13:00"),
		Reason:    "almoço",
		RuleID:    "rule-1",
	}
	mock.ExpectExec("INSERT INTO blocks").
		WithArgs(pgxmock.AnyArg(), "2030-01-07", "12:00", "13:00", "almoço", "rule-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	saved, err := repo.InsertBlock(context.Background(), b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected generated id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecurringBlockRules(t *testing.T) {
	mock := newMock(t)
	repo := NewRepository(mock, nil, 30)

	raw := []byte(`{"1":{"enabled":true,"start_time":"12:00","end_time":"13:00"},"6":{"enabled":false,"start_time":"00:00","end_time":"00:00"}}`)
	mock.ExpectQuery("FROM recurring_block_rules").
		WillReturnRows(pgxmock.NewRows([]string{"id", "reason", "per_weekday"}).AddRow("rule-1", "almoço", raw))

	rules, err := repo.RecurringBlockRules(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	mon := rules[0].PerWeekday[time.Monday]
	if !mon.Enabled || mon.StartTime != civil.MustClock("12:00") || mon.EndTime != civil.MustClock("13:00") {
		t.Fatalf("unexpected monday window %+v", mon)
	}
	if rules[0].PerWeekday[time.Saturday].Enabled {
		t.Fatal("saturday should be disabled")
	}
}

func TestCatalogAndClients(t *testing.T) {
	mock := newMock(t)
	repo := NewRepository(mock, nil, 30)

	mock.ExpectQuery("FROM services").WillReturnRows(
		pgxmock.NewRows([]string{"id", "name", "duration_minutes", "price_cents"}).
			AddRow("s1", "Corte", 40, int64(5000)).
			AddRow("s2", "Escova", 30, int64(4000)))
	cat, err := repo.Catalog(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d, ok := cat.DurationFor("corte + escova"); !ok || d != 70 {
		t.Fatalf("expected 70 minutes, got %d %v", d, ok)
	}

	mock.ExpectQuery("FROM clients").WillReturnRows(
		pgxmock.NewRows([]string{"id", "name", "phone"}).AddRow("c1", "Gabriel Lima", "11987654321"))
	clients, err := repo.Clients(context.Background())
	if err != nil || len(clients) != 1 || clients[0].Phone != "11987654321" {
		t.Fatalf("unexpected clients %+v %v", clients, err)
	}
}
