package model

import (
	"strings"
	"time"
)

// ContactOnlyPrefix marks reminder rows that only map an event to a phone number.
const ContactOnlyPrefix = "contact_only:"

const (
	ContactOnlyDisabled = ContactOnlyPrefix + "reminders_disabled"
	ContactOnlyPassed   = ContactOnlyPrefix + "reminder_time_passed"
)

type ReminderState string

const (
	ReminderNone        ReminderState = "no_reminder"
	ReminderPending     ReminderState = "pending"
	ReminderSent        ReminderState = "sent"
	ReminderContactOnly ReminderState = "contact_only"
)

type ScheduledReminder struct {
	ID              string
	EventID         string
	ClientPhone     string
	ClientName      string
	ServiceName     string
	AppointmentTime time.Time
	ReminderTime    time.Time
	Sent            bool
	SentAt          *time.Time
	Error           string
	Attempts        int
	CreatedAt       time.Time
}

func (r ScheduledReminder) IsContactOnly() bool {
	return strings.HasPrefix(r.Error, ContactOnlyPrefix)
}

func (r ScheduledReminder) State() ReminderState {
	switch {
	case r.IsContactOnly():
		return ReminderContactOnly
	case r.Sent:
		return ReminderSent
	default:
		return ReminderPending
	}
}
