package calendar

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a process-local calendar used when no Google calendar is configured.
type MemoryStore struct {
	mu     sync.Mutex
	events map[string]Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: map[string]Event{}}
}

func (m *MemoryStore) Create(_ context.Context, ev NewEvent) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := Event{
		ID:          uuid.NewString(),
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       ev.Start,
		End:         ev.End,
	}
	m.events[out.ID] = out
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return ErrEventNotFound
	}
	delete(m.events, id)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return Event{}, ErrEventNotFound
	}
	return ev, nil
}

// List returns events overlapping [timeMin, timeMax) ordered by start.
func (m *MemoryStore) List(_ context.Context, timeMin, timeMax time.Time) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, ev := range m.events {
		if ev.Start.Before(timeMax) && ev.End.After(timeMin) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}
