package model

import (
	"strings"
	"time"

	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/civil"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusPending   Status = "pending"
)

// ParseStatus maps free text to a status; anything unknown is confirmed.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "pendente":
		return StatusPending
	default:
		return StatusConfirmed
	}
}

// Appointment is one booked interval. ID is the calendar event id and is only ever
// assigned by the calendar store.
type Appointment struct {
	ID          string
	ClientName  string
	ClientPhone string
	Service     string
	Date        civil.Date
	StartTime   civil.Clock
	EndTime     civil.Clock
	Status      Status
}

func (a Appointment) DurationMinutes() int {
	return int(a.EndTime - a.StartTime)
}

func (a Appointment) Start(loc *time.Location) time.Time {
	return a.Date.At(a.StartTime, loc)
}

func (a Appointment) End(loc *time.Location) time.Time {
	return a.Date.At(a.EndTime, loc)
}

// BusinessHours is the opening window for one weekday.
type BusinessHours struct {
	Weekday   time.Weekday
	StartTime civil.Clock
	EndTime   civil.Clock
	Closed    bool
}

// Block is a manually declared unavailable interval on one date.
type Block struct {
	ID        string
	Date      civil.Date
	StartTime civil.Clock
	EndTime   civil.Clock
	Reason    string
	RuleID    string
}

// SameSlot reports whether two blocks cover the same date and times.
func (b Block) SameSlot(o Block) bool {
	return b.Date == o.Date && b.StartTime == o.StartTime && b.EndTime == o.EndTime
}

type WeekdayWindow struct {
	Enabled   bool        `json:"enabled"`
	StartTime civil.Clock `json:"start_time"`
	EndTime   civil.Clock `json:"end_time"`
}

// RecurringBlockRule is the source of truth for blocks that repeat on weekdays.
type RecurringBlockRule struct {
	ID         string
	Reason     string
	PerWeekday map[time.Weekday]WeekdayWindow
}

type VacationDay struct {
	Date   civil.Date
	Reason string
}

type Client struct {
	ID    string
	Name  string
	Phone string
}

type ServiceItem struct {
	ID              string
	Name            string
	DurationMinutes int
	PriceCents      int64
}
