package reminders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const reminderColumns = `id, event_id, client_phone, client_name, service_name, appointment_time, reminder_time, sent, sent_at, error, attempts, created_at`

// Repository stores scheduled_reminders rows in Postgres.
type Repository struct {
	db querier
}

func NewRepository(db querier) *Repository {
	return &Repository{db: db}
}

func (r *Repository) PendingByEvent(ctx context.Context, eventID string) (*model.ScheduledReminder, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+reminderColumns+`
		FROM scheduled_reminders
		WHERE event_id = $1 AND sent = false
		ORDER BY created_at DESC
		LIMIT 1
	`, eventID)
	return scanOptional(row)
}

func (r *Repository) LatestByEvent(ctx context.Context, eventID string) (*model.ScheduledReminder, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+reminderColumns+`
		FROM scheduled_reminders
		WHERE event_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, eventID)
	return scanOptional(row)
}

func (r *Repository) Insert(ctx context.Context, rem model.ScheduledReminder) (model.ScheduledReminder, error) {
	if rem.ID == "" {
		rem.ID = uuid.NewString()
	}
	if rem.CreatedAt.IsZero() {
		rem.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO scheduled_reminders (id, event_id, client_phone, client_name, service_name, appointment_time, reminder_time, sent, sent_at, error, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, rem.ID, rem.EventID, rem.ClientPhone, rem.ClientName, rem.ServiceName, rem.AppointmentTime, rem.ReminderTime, rem.Sent, rem.SentAt, rem.Error, rem.Attempts, rem.CreatedAt)
	if err != nil {
		return model.ScheduledReminder{}, err
	}
	return rem, nil
}

func (r *Repository) Update(ctx context.Context, rem model.ScheduledReminder) error {
	_, err := r.db.Exec(ctx, `
		UPDATE scheduled_reminders
		SET event_id = $2,
		    client_phone = $3,
		    client_name = $4,
		    service_name = $5,
		    appointment_time = $6,
		    reminder_time = $7,
		    sent = $8,
		    sent_at = $9,
		    error = $10,
		    attempts = $11,
		    next_attempt_at = NULL,
		    updated_at = now()
		WHERE id = $1
	`, rem.ID, rem.EventID, rem.ClientPhone, rem.ClientName, rem.ServiceName, rem.AppointmentTime, rem.ReminderTime, rem.Sent, rem.SentAt, rem.Error, rem.Attempts)
	return err
}

// FetchDue locks dispatchable reminders whose time has come. Contact-only rows are sent=true
// and never qualify.
func (r *Repository) FetchDue(ctx context.Context, tx pgx.Tx, limit int, maxAttempts int) ([]model.ScheduledReminder, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+reminderColumns+`
		FROM scheduled_reminders
		WHERE sent = false
		  AND error NOT LIKE 'contact_only:%'
		  AND reminder_time <= now()
		  AND (next_attempt_at IS NULL OR next_attempt_at <= now())
		  AND attempts < $2
		ORDER BY reminder_time
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit, maxAttempts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ScheduledReminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rem)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) MarkSent(ctx context.Context, tx pgx.Tx, id string, sentAt time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE scheduled_reminders
		SET sent = true, sent_at = $2, error = '', updated_at = now()
		WHERE id = $1
	`, id, sentAt)
	return err
}

// MarkSkipped closes a reminder that must not be sent, e.g. because its event is gone.
func (r *Repository) MarkSkipped(ctx context.Context, tx pgx.Tx, id string, reason string) error {
	_, err := tx.Exec(ctx, `
		UPDATE scheduled_reminders
		SET sent = true, error = $2, updated_at = now()
		WHERE id = $1
	`, id, reason)
	return err
}

func (r *Repository) MarkFailed(ctx context.Context, tx pgx.Tx, id string, attempts int, nextAttemptAt time.Time, lastError string) error {
	_, err := tx.Exec(ctx, `
		UPDATE scheduled_reminders
		SET attempts = $2,
		    next_attempt_at = $3,
		    error = $4,
		    updated_at = now()
		WHERE id = $1
	`, id, attempts, nextAttemptAt, lastError)
	return err
}

func scanOptional(row pgx.Row) (*model.ScheduledReminder, error) {
	rem, err := scanReminder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rem, nil
}

func scanReminder(row pgx.Row) (model.ScheduledReminder, error) {
	var rem model.ScheduledReminder
	err := row.Scan(&rem.ID, &rem.EventID, &rem.ClientPhone, &rem.ClientName, &rem.ServiceName, &rem.AppointmentTime, &rem.ReminderTime, &rem.Sent, &rem.SentAt, &rem.Error, &rem.Attempts, &rem.CreatedAt)
	return rem, err
}
