// Package settings loads the business settings file: local offset, reminder policy,
// horizons and the default opening hours used when the record store has none.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/civil"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type Reminders struct {
	Enabled     bool `yaml:"enabled"`
	HoursBefore int  `yaml:"hours_before"`
}

// DayHours is one weekday's opening window, "HH:MM" in local time.
type DayHours struct {
	Start  string `yaml:"start"`
	End    string `yaml:"end"`
	Closed bool   `yaml:"closed"`
}

type Settings struct {
	BusinessName string `yaml:"business_name"`

	// UTCOffset is the fixed offset of the business, e.g. "-03:00".
	UTCOffset string `yaml:"utc_offset"`

	Reminders Reminders `yaml:"reminders"`

	// SeriesHorizonDays bounds how far ahead series members are searched.
	SeriesHorizonDays int `yaml:"series_horizon_days"`

	BlockHorizonDays int    `yaml:"block_horizon_days"`
	BlockCron        string `yaml:"block_cron"`

	DefaultDurationMinutes int `yaml:"default_duration_minutes"`

	// DefaultHours is keyed by lowercase English weekday name.
	DefaultHours map[string]DayHours `yaml:"default_hours"`
}

func Default() *Settings {
	s := &Settings{Reminders: Reminders{Enabled: true}}
	s.Normalize()
	return s
}

// Normalize fills zero values with defaults so partial files still work.
func (s *Settings) Normalize() {
	if s.BusinessName == "" {
		s.BusinessName = "Agenda"
	}
	if s.UTCOffset == "" {
		s.UTCOffset = "-03:00"
	}
	if s.Reminders.HoursBefore <= 0 {
		s.Reminders.HoursBefore = 10
	}
	if s.SeriesHorizonDays <= 0 {
		s.SeriesHorizonDays = 180
	}
	if s.BlockHorizonDays <= 0 {
		s.BlockHorizonDays = 30
	}
	if s.BlockCron == "" {
		s.BlockCron = "5 0 * * *"
	}
	if s.DefaultDurationMinutes <= 0 {
		s.DefaultDurationMinutes = 30
	}
	if s.DefaultHours == nil {
		s.DefaultHours = map[string]DayHours{}
		for d := time.Monday; d <= time.Saturday; d++ {
			s.DefaultHours[strings.ToLower(d.String())] = DayHours{Start: "09:00", End: "18:00"}
		}
		s.DefaultHours["sunday"] = DayHours{Closed: true}
	}
}

// Load reads path. A missing file yields the defaults so a fresh install starts.
func Load(path string) (*Settings, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Settings, error) {
	s := &Settings{Reminders: Reminders{Enabled: true}}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate catches values that would otherwise fail much later at runtime.
func (s *Settings) Validate() error {
	if _, err := civil.ParseOffset(s.UTCOffset); err != nil {
		return err
	}
	if _, err := cron.ParseStandard(s.BlockCron); err != nil {
		return fmt.Errorf("invalid block_cron %q: %w", s.BlockCron, err)
	}
	_, err := s.BusinessHours()
	return err
}

func (s *Settings) Location() (*time.Location, error) {
	return civil.ParseOffset(s.UTCOffset)
}

func (s *Settings) ReminderLeadTime() time.Duration {
	return time.Duration(s.Reminders.HoursBefore) * time.Hour
}

// BusinessHours converts DefaultHours to model rows. Weekdays missing from the file
// are absent from the map and plan as closed.
func (s *Settings) BusinessHours() (map[time.Weekday]model.BusinessHours, error) {
	out := map[time.Weekday]model.BusinessHours{}
	for name, h := range s.DefaultHours {
		wd, ok := parseWeekday(name)
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q in default_hours", name)
		}
		row := model.BusinessHours{Weekday: wd, Closed: h.Closed}
		if !h.Closed {
			start, err := civil.ParseClock(h.Start)
			if err != nil {
				return nil, fmt.Errorf("default_hours.%s: %w", name, err)
			}
			end, err := civil.ParseClock(h.End)
			if err != nil {
				return nil, fmt.Errorf("default_hours.%s: %w", name, err)
			}
			if end <= start {
				return nil, fmt.Errorf("default_hours.%s: end must be after start", name)
			}
			row.StartTime, row.EndTime = start, end
		}
		out[wd] = row
	}
	return out, nil
}

func parseWeekday(name string) (time.Weekday, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d, true
		}
	}
	return 0, false
}
