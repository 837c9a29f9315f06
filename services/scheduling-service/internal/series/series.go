// Package series infers recurring weekly bookings from free-text appointments.
package series

import (
	"sort"
	"time"

	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/civil"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/names"
)

// Key is the derived identity of a recurring booking. It is never stored.
type Key struct {
	Client    string
	Service   string
	StartTime civil.Clock
	Weekday   time.Weekday
}

func KeyOf(a model.Appointment) Key {
	return Key{
		Client:    names.Normalize(a.ClientName),
		Service:   names.Normalize(a.Service),
		StartTime: a.StartTime,
		Weekday:   a.Date.Weekday(),
	}
}

// Match is one future occurrence together with how its client name matched the anchor.
type Match struct {
	Appointment model.Appointment
	Client      names.MatchResult
	Service     names.MatchResult
}

// Ambiguous reports whether the match relied on a prefix or first-name heuristic.
func (m Match) Ambiguous() bool {
	return m.Client.Ambiguous || m.Service.Ambiguous
}

// Find returns the candidates that look like later occurrences of anchor: compatible client
// and service text, the same start time and weekday, and a strictly later date. Results are
// ordered by date. An empty result means anchor is not part of a series.
func Find(anchor model.Appointment, candidates []model.Appointment) []Match {
	weekday := anchor.Date.Weekday()
	var out []Match
	for _, c := range candidates {
		if c.ID == anchor.ID || c.StartTime != anchor.StartTime {
			continue
		}
		if !c.Date.After(anchor.Date) || c.Date.Weekday() != weekday {
			continue
		}
		client := names.MatchNames(anchor.ClientName, c.ClientName)
		if !client.Matched {
			continue
		}
		service := names.MatchText(anchor.Service, c.Service)
		if !service.Matched {
			continue
		}
		out = append(out, Match{Appointment: c, Client: client, Service: service})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Appointment.Date.Before(out[j].Appointment.Date)
	})
	return out
}

// Appointments unwraps matches.
func Appointments(matches []Match) []model.Appointment {
	out := make([]model.Appointment, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Appointment)
	}
	return out
}
