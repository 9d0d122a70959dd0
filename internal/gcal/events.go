package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

const (
	primaryCalendarID = "primary"
	noTitle           = "(no title)"
)

// UpcomingEvent is one event as shown to the pet. Labels are rough wall-clock strings,
// not parsed times.
type UpcomingEvent struct {
	StartLabel string
	EndLabel   string
	Title      string
}

// String renders the event as "start ~ end: title"
func (e UpcomingEvent) String() string {
	return fmt.Sprintf("%s ~ %s: %s", e.StartLabel, e.EndLabel, e.Title)
}

// UpcomingEvents returns up to maxResults upcoming events from the primary calendar
// formatted as "start ~ end: title"
func (c *Client) UpcomingEvents(ctx context.Context, maxResults int) ([]string, error) {
	events, err := c.ListUpcoming(ctx, maxResults)
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(events))
	for _, event := range events {
		lines = append(lines, event.String())
	}
	return lines, nil
}

// ListUpcoming returns events starting at or after now, single instances of recurring
// events expanded, ordered by start time
func (c *Client) ListUpcoming(ctx context.Context, maxResults int) ([]UpcomingEvent, error) {
	if maxResults <= 0 {
		return []UpcomingEvent{}, nil
	}

	service, err := c.calendarService(ctx)
	if err != nil {
		return nil, err
	}

	timeMin := c.now().UTC().Format(time.RFC3339)
	events, err := service.Events.List(primaryCalendarID).
		TimeMin(timeMin).
		MaxResults(int64(maxResults)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, c.classifyError(err)
	}

	result := make([]UpcomingEvent, 0, len(events.Items))
	for _, item := range events.Items {
		if item == nil {
			continue
		}
		result = append(result, eventFromItem(item))
		if len(result) == maxResults {
			break
		}
	}

	return result, nil
}

// classifyError maps credential failures onto ErrNotAuthenticated and drops the
// cached service so a re-run of the consent flow is picked up
func (c *Client) classifyError(err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code == http.StatusUnauthorized {
		c.resetService()
		return fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}

	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		c.resetService()
		return fmt.Errorf("%w: token refresh failed: %v", ErrNotAuthenticated, err)
	}

	return fmt.Errorf("failed to list upcoming events: %w", err)
}

func eventFromItem(item *calendar.Event) UpcomingEvent {
	title := item.Summary
	if title == "" {
		title = noTitle
	}

	return UpcomingEvent{
		StartLabel: eventLabel(item.Start),
		EndLabel:   eventLabel(item.End),
		Title:      title,
	}
}

// eventLabel prefers the timed value over the all-day date
func eventLabel(dt *calendar.EventDateTime) string {
	if dt == nil {
		return ""
	}
	if dt.DateTime != "" {
		return roughTimestamp(dt.DateTime)
	}
	return roughTimestamp(dt.Date)
}

// roughTimestamp turns "2025-11-14T09:00:00-05:00" into "2025-11-14 09:00:00".
// The zone designator is dropped without converting the clock, so the label is
// whatever wall time the calendar reported.
func roughTimestamp(value string) string {
	datePart, clockPart, found := strings.Cut(value, "T")
	if !found {
		return value
	}
	if idx := strings.IndexAny(clockPart, "Z+-"); idx >= 0 {
		clockPart = clockPart[:idx]
	}
	return datePart + " " + clockPart
}
