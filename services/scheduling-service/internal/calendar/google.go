package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleStore keeps appointments as events of one Google calendar.
type GoogleStore struct {
	events     *gcal.EventsService
	calendarID string
	loc        *time.Location
}

func NewGoogleStore(ctx context.Context, calendarID string, credentialsFile string, loc *time.Location) (*GoogleStore, error) {
	var opts []option.ClientOption
	if strings.TrimSpace(credentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init calendar service: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &GoogleStore{events: svc.Events, calendarID: calendarID, loc: loc}, nil
}

func (g *GoogleStore) Create(ctx context.Context, ev NewEvent) (Event, error) {
	created, err := g.events.Insert(g.calendarID, &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       &gcal.EventDateTime{DateTime: ev.Start.In(g.loc).Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: ev.End.In(g.loc).Format(time.RFC3339)},
	}).Context(ctx).Do()
	if err != nil {
		return Event{}, err
	}
	return fromGoogle(created)
}

func (g *GoogleStore) Delete(ctx context.Context, id string) error {
	err := g.events.Delete(g.calendarID, id).Context(ctx).Do()
	if isGone(err) {
		return ErrEventNotFound
	}
	return err
}

func (g *GoogleStore) Get(ctx context.Context, id string) (Event, error) {
	ev, err := g.events.Get(g.calendarID, id).Context(ctx).Do()
	if isGone(err) {
		return Event{}, ErrEventNotFound
	}
	if err != nil {
		return Event{}, err
	}
	if ev.Status == "cancelled" {
		return Event{}, ErrEventNotFound
	}
	return fromGoogle(ev)
}

func (g *GoogleStore) List(ctx context.Context, timeMin, timeMax time.Time) ([]Event, error) {
	var out []Event
	call := g.events.List(g.calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(2500)
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			if item.Status == "cancelled" {
				continue
			}
			ev, err := fromGoogle(item)
			if err != nil {
				// all-day entries carry no time and are not appointments
				continue
			}
			out = append(out, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func fromGoogle(ev *gcal.Event) (Event, error) {
	if ev.Start == nil || ev.End == nil || ev.Start.DateTime == "" || ev.End.DateTime == "" {
		return Event{}, fmt.Errorf("event %s has no date-time", ev.Id)
	}
	start, err := time.Parse(time.RFC3339, ev.Start.DateTime)
	if err != nil {
		return Event{}, err
	}
	end, err := time.Parse(time.RFC3339, ev.End.DateTime)
	if err != nil {
		return Event{}, err
	}
	return Event{ID: ev.Id, Summary: ev.Summary, Description: ev.Description, Start: start, End: end}, nil
}

func isGone(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone
	}
	return false
}
