package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SchedulingMetrics counts use-case outcomes and the side effects they trigger.
type SchedulingMetrics struct {
	useCases       *prometheus.CounterVec
	useCaseLatency *prometheus.HistogramVec
	calendarOps    *prometheus.CounterVec
	reminders      *prometheus.CounterVec
	messages       *prometheus.CounterVec
	blocks         prometheus.Counter
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		useCases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "scheduling",
			Name:      "usecase_total",
			Help:      "Scheduling use-case runs by outcome",
		}, []string{"usecase", "outcome"}),
		useCaseLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agenda",
			Subsystem: "scheduling",
			Name:      "usecase_duration_seconds",
			Help:      "Latency of scheduling use-cases",
			Buckets:   prometheus.DefBuckets,
		}, []string{"usecase"}),
		calendarOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "calendar",
			Name:      "operations_total",
			Help:      "Calendar store calls by operation and status",
		}, []string{"op", "status"}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "reminders",
			Name:      "events_total",
			Help:      "Reminder lifecycle and dispatch events",
		}, []string{"event"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "messaging",
			Name:      "outbound_total",
			Help:      "Outbound client messages by kind and status",
		}, []string{"kind", "status"}),
		blocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "blocks",
			Name:      "materialized_total",
			Help:      "Blocks materialized from recurring rules",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.useCases, m.useCaseLatency, m.calendarOps, m.reminders, m.messages, m.blocks)
	return m
}

func (m *SchedulingMetrics) ObserveUseCase(useCase, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.useCases.WithLabelValues(useCase, outcome).Inc()
	m.useCaseLatency.WithLabelValues(useCase).Observe(time.Since(started).Seconds())
}

func (m *SchedulingMetrics) ObserveCalendar(op string, err error) {
	if m == nil {
		return
	}
	m.calendarOps.WithLabelValues(op, status(err)).Inc()
}

func (m *SchedulingMetrics) ObserveReminder(event string) {
	if m == nil || event == "" {
		return
	}
	m.reminders.WithLabelValues(event).Inc()
}

func (m *SchedulingMetrics) ObserveMessage(kind string, err error) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(kind, status(err)).Inc()
}

func (m *SchedulingMetrics) AddBlocks(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.blocks.Add(float64(n))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
