package reminders

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/metrics"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/notify"
)

const skippedEventDeleted = "skipped:event_deleted"

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// EventChecker reports whether a calendar event still exists.
type EventChecker interface {
	Exists(ctx context.Context, eventID string) (bool, error)
}

// Worker sends due reminders. Reminders whose calendar event was deleted are closed
// without sending, which makes a cancel without reminder cleanup harmless.
type Worker struct {
	db          txBeginner
	repo        *Repository
	sender      notify.Dispatcher
	events      EventChecker
	notifier    notify.Notifier
	metrics     *metrics.SchedulingMetrics
	logger      *slog.Logger
	loc         *time.Location
	interval    time.Duration
	batchSize   int
	backoff     time.Duration
	maxAttempts int
	now         func() time.Time
}

type WorkerConfig struct {
	Interval    time.Duration
	BatchSize   int
	Backoff     time.Duration
	MaxAttempts int
	Location    *time.Location
}

func NewWorker(db txBeginner, repo *Repository, sender notify.Dispatcher, events EventChecker, m *metrics.SchedulingMetrics, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 5 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Worker{
		db:          db,
		repo:        repo,
		sender:      sender,
		events:      events,
		notifier:    notify.Noop{},
		metrics:     m,
		logger:      logger,
		loc:         cfg.Location,
		interval:    cfg.Interval,
		batchSize:   cfg.BatchSize,
		backoff:     cfg.Backoff,
		maxAttempts: cfg.MaxAttempts,
		now:         time.Now,
	}
}

// WithNotifier announces each sent reminder in-app once its batch commits.
func (w *Worker) WithNotifier(n notify.Notifier) *Worker {
	if n != nil {
		w.notifier = n
	}
	return w
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.ProcessBatch(ctx); err != nil {
				w.logger.Error("reminder batch failed", "err", err)
			}
		}
	}
}

// ProcessBatch dispatches one batch inside a transaction and returns how many were sent.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	tx, err := w.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	due, err := w.repo.FetchDue(ctx, tx, w.batchSize, w.maxAttempts)
	if err != nil {
		return 0, err
	}

	var sent []model.ScheduledReminder
	for _, rem := range due {
		if w.events != nil {
			exists, err := w.events.Exists(ctx, rem.EventID)
			if err != nil {
				w.logger.Warn("reminder event check failed", "err", err, "event_id", rem.EventID)
			} else if !exists {
				if err := w.repo.MarkSkipped(ctx, tx, rem.ID, skippedEventDeleted); err != nil {
					return 0, err
				}
				w.metrics.ObserveReminder("skipped")
				continue
			}
		}

		if err := w.sender.Send(ctx, rem.ClientPhone, notify.ReminderMessage(rem, w.loc)); err != nil {
			if err := w.fail(ctx, tx, rem, err); err != nil {
				return 0, err
			}
			continue
		}
		if err := w.repo.MarkSent(ctx, tx, rem.ID, w.now().UTC()); err != nil {
			return 0, err
		}
		w.metrics.ObserveReminder("sent")
		sent = append(sent, rem)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	for _, rem := range sent {
		w.notifier.Emit(ctx, notify.Event{
			Type:     notify.EventReminderDispatched,
			Title:    "Lembrete enviado",
			Message:  rem.ClientName + " - " + rem.ServiceName,
			EventIDs: []string{rem.EventID},
		})
	}
	return len(sent), nil
}

func (w *Worker) fail(ctx context.Context, tx pgx.Tx, rem model.ScheduledReminder, sendErr error) error {
	attempts := rem.Attempts + 1
	w.logger.Warn("reminder send failed", "err", sendErr, "event_id", rem.EventID, "attempts", attempts)
	w.metrics.ObserveReminder("failed")
	if attempts >= w.maxAttempts {
		w.logger.Error("reminder dropped after max attempts", "event_id", rem.EventID)
	}
	return w.repo.MarkFailed(ctx, tx, rem.ID, attempts, w.now().UTC().Add(w.backoff), sendErr.Error())
}
