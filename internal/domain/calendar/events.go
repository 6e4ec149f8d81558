package calendar

import (
	"context"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// EventsAPI is the slice of the Google Calendar API the sync needs. The
// indirection keeps the dispatcher testable without the network.
type EventsAPI interface {
	Insert(ctx context.Context, calendarID string, event *gcal.Event) (*gcal.Event, error)
	Update(ctx context.Context, calendarID, eventID string, event *gcal.Event) (*gcal.Event, error)
	Delete(ctx context.Context, calendarID, eventID string) error
}

type googleEvents struct {
	svc *gcal.Service
}

// newGoogleEvents builds a calendar client with a static token so that token
// refresh stays an explicit, single-attempt decision in the sync service.
func newGoogleEvents(ctx context.Context, token *oauth2.Token) (EventsAPI, error) {
	svc, err := gcal.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(token)))
	if err != nil {
		return nil, err
	}
	return &googleEvents{svc: svc}, nil
}

func (g *googleEvents) Insert(ctx context.Context, calendarID string, event *gcal.Event) (*gcal.Event, error) {
	return g.svc.Events.Insert(calendarID, event).Context(ctx).Do()
}

func (g *googleEvents) Update(ctx context.Context, calendarID, eventID string, event *gcal.Event) (*gcal.Event, error) {
	return g.svc.Events.Update(calendarID, eventID, event).Context(ctx).Do()
}

func (g *googleEvents) Delete(ctx context.Context, calendarID, eventID string) error {
	return g.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
}
