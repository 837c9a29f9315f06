package blocks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/civil"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/metrics"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs materialization shortly after midnight.
const DefaultSchedule = "5 0 * * *"

type Store interface {
	RecurringBlockRules(ctx context.Context) ([]model.RecurringBlockRule, error)
	BlocksBetween(ctx context.Context, from, to civil.Date) ([]model.Block, error)
	InsertBlock(ctx context.Context, b model.Block) (model.Block, error)
}

// Job materializes every rule over a rolling horizon on a cron schedule.
type Job struct {
	store   Store
	horizon int
	loc     *time.Location
	metrics *metrics.SchedulingMetrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewJob(store Store, horizonDays int, loc *time.Location, m *metrics.SchedulingMetrics, logger *slog.Logger) *Job {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Job{store: store, horizon: horizonDays, loc: loc, metrics: m, logger: logger, now: time.Now}
}

// RunOnce materializes all rules from today and returns how many blocks were inserted.
func (j *Job) RunOnce(ctx context.Context) (int, error) {
	rules, err := j.store.RecurringBlockRules(ctx)
	if err != nil {
		return 0, fmt.Errorf("load rules: %w", err)
	}
	if len(rules) == 0 {
		return 0, nil
	}
	from := civil.DateOf(j.now().In(j.loc))
	existing, err := j.store.BlocksBetween(ctx, from, from.AddDays(j.horizon-1))
	if err != nil {
		return 0, fmt.Errorf("load blocks: %w", err)
	}

	inserted := 0
	for _, rule := range rules {
		for _, b := range Materialize(rule, from, j.horizon, existing) {
			saved, err := j.store.InsertBlock(ctx, b)
			if err != nil {
				j.metrics.AddBlocks(inserted)
				return inserted, fmt.Errorf("insert block %s %s: %w", b.Date, b.StartTime, err)
			}
			existing = append(existing, saved)
			inserted++
		}
	}
	j.metrics.AddBlocks(inserted)
	return inserted, nil
}

// Start runs the job once and then on schedule until ctx is done.
func (j *Job) Start(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	c := cron.New(cron.WithLocation(j.loc))
	if _, err := c.AddFunc(schedule, func() { j.run(ctx) }); err != nil {
		return fmt.Errorf("invalid block schedule %q: %w", schedule, err)
	}
	j.run(ctx)
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}

func (j *Job) run(ctx context.Context) {
	n, err := j.RunOnce(ctx)
	if err != nil {
		j.logger.Error("block materialization failed", "err", err, "inserted", n)
		return
	}
	if n > 0 {
		j.logger.Info("blocks materialized", "inserted", n)
	}
}
