package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/catalog"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/civil"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
)

var ErrNotFound = errors.New("not found")

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the record store for business configuration and the client directory.
// Dates and wall-clock times travel as text so the fixed business offset never leaks in.
type Repository struct {
	db              querier
	defaultHours    map[time.Weekday]model.BusinessHours
	defaultDuration int
}

func NewRepository(db querier, defaultHours map[time.Weekday]model.BusinessHours, defaultDuration int) *Repository {
	return &Repository{db: db, defaultHours: defaultHours, defaultDuration: defaultDuration}
}

// BusinessHours returns the stored hours for weekday, falling back to the configured
// defaults. A nil result means no hours are known, which plans as closed.
func (r *Repository) BusinessHours(ctx context.Context, weekday time.Weekday) (*model.BusinessHours, error) {
	h, err := r.storedHours(ctx, weekday)
	if errors.Is(err, ErrNotFound) {
		if d, ok := r.defaultHours[weekday]; ok {
			return &d, nil
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *Repository) storedHours(ctx context.Context, weekday time.Weekday) (model.BusinessHours, error) {
	var start, end string
	h := model.BusinessHours{Weekday: weekday}
	err := r.db.QueryRow(ctx, `
		SELECT to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), closed
		FROM business_hours
		WHERE weekday = $1
	`, int(weekday)).Scan(&start, &end, &h.Closed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.BusinessHours{}, ErrNotFound
		}
		return model.BusinessHours{}, err
	}
	if h.StartTime, err = civil.ParseClock(start); err != nil {
		return model.BusinessHours{}, err
	}
	if h.EndTime, err = civil.ParseClock(end); err != nil {
		return model.BusinessHours{}, err
	}
	return h, nil
}

func (r *Repository) IsVacation(ctx context.Context, date civil.Date) (bool, error) {
	var exists int
	err := r.db.QueryRow(ctx, `SELECT 1 FROM vacation_days WHERE day = $1::date`, date.String()).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *Repository) BlocksOn(ctx context.Context, date civil.Date) ([]model.Block, error) {
	return r.BlocksBetween(ctx, date, date)
}

func (r *Repository) BlocksBetween(ctx context.Context, from, to civil.Date) ([]model.Block, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, day::text, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), reason, COALESCE(rule_id::text, '')
		FROM blocks
		WHERE day BETWEEN $1::date AND $2::date
		ORDER BY day, start_time
	`, from.String(), to.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Block
	for rows.Next() {
		var b model.Block
		var day, start, end string
		if err := rows.Scan(&b.ID, &day, &start, &end, &b.Reason, &b.RuleID); err != nil {
			return nil, err
		}
		if b.Date, err = civil.ParseDate(day); err != nil {
			return nil, err
		}
		if b.StartTime, err = civil.ParseClock(start); err != nil {
			return nil, err
		}
		if b.EndTime, err = civil.ParseClock(end); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// InsertBlock skips a row identical in date and times to an existing one and returns it.
func (r *Repository) InsertBlock(ctx context.Context, b model.Block) (model.Block, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	var ruleID any
	if b.RuleID != "" {
		ruleID = b.RuleID
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO blocks (id, day, start_time, end_time, reason, rule_id)
		VALUES ($1, $2::date, $3::time, $4::time, $5, $6)
		ON CONFLICT (day, start_time, end_time) DO NOTHING
	`, b.ID, b.Date.String(), b.StartTime.String(), b.EndTime.String(), b.Reason, ruleID)
	if err != nil {
		return model.Block{}, err
	}
	return b, nil
}

func (r *Repository) RecurringBlockRules(ctx context.Context) ([]model.RecurringBlockRule, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, reason, per_weekday
		FROM recurring_block_rules
		WHERE active = true
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RecurringBlockRule
	for rows.Next() {
		var rule model.RecurringBlockRule
		var raw []byte
		if err := rows.Scan(&rule.ID, &rule.Reason, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &rule.PerWeekday); err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		out = append(out, rule)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) Clients(ctx context.Context) ([]model.Client, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, COALESCE(phone, '')
		FROM clients
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Client
	for rows.Next() {
		var c model.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// Catalog loads the active services.
func (r *Repository) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, duration_minutes, price_cents
		FROM services
		WHERE active = true
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.ServiceItem
	for rows.Next() {
		var it model.ServiceItem
		if err := rows.Scan(&it.ID, &it.Name, &it.DurationMinutes, &it.PriceCents); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return catalog.New(items, r.defaultDuration), nil
}
