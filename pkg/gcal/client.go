package gcal

import (
	"context"
	"fmt"

	"google.golang.org/api/calendar/v3"

	"github.com/breadoorr/SmartPlan/pkg/auth"
	"github.com/breadoorr/SmartPlan/pkg/colors"
	"github.com/breadoorr/SmartPlan/pkg/index"
)

// NewClient authenticates and returns a client for the calendar named calendarName.
func NewClient(ctx context.Context, calendarName string, idx *index.EventIndex, cache *colors.ColorCache) (*CalendarClient, error) {
	srv, err := auth.GetCalendarService(ctx)
	if err != nil {
		return nil, err
	}

	calendarID, err := FindCalendarID(ctx, srv, calendarName)
	if err != nil {
		return nil, err
	}
	return NewCalendarClient(srv, calendarID, idx, cache), nil
}

// FindCalendarID resolves a calendar summary to its id.
func FindCalendarID(ctx context.Context, srv *calendar.Service, calendarName string) (string, error) {
	calendarList, err := srv.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to retrieve calendar list: %w", err)
	}

	for _, item := range calendarList.Items {
		if item.Summary == calendarName {
			return item.Id, nil
		}
	}
	return "", fmt.Errorf("calendar '%s' not found", calendarName)
}
