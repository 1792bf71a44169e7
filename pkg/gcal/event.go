package gcal

import (
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/breadoorr/SmartPlan/pkg/model"
	"github.com/breadoorr/SmartPlan/pkg/timeline"
)

const (
	// TaskIDProperty and PlanKeyProperty are private extended properties
	// linking an event back to its task.
	TaskIDProperty  = "smartplan_id"
	PlanKeyProperty = "smartplan_plan"

	completedPrefix = "✓"
	overduePrefix   = "!"
)

var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

func parseDatetime(s string) (time.Time, bool) {
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// EventFromTask converts a task to a calendar event. Tasks carrying both a
// start and end time become timed events; all others span their dates as an
// all-day event. now decides whether a pending task is overdue.
func EventFromTask(task model.Task, colorID string, now time.Time) (*calendar.Event, error) {
	start, err := task.Start()
	if err != nil {
		return nil, fmt.Errorf("task %q has invalid startDate %q: %w", task.ID, task.StartDate, err)
	}
	end, err := task.End()
	if err != nil {
		return nil, fmt.Errorf("task %q has invalid endDate %q: %w", task.ID, task.EndDate, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("task %q ends before it starts", task.ID)
	}

	summary := task.Title
	today := now.Format(model.DateLayout)
	if task.Completed {
		summary = completedPrefix + " " + task.Title
	} else if task.EndDate < today {
		summary = overduePrefix + " " + task.Title
	}

	var desc strings.Builder
	if task.Description != "" {
		desc.WriteString(task.Description)
		desc.WriteString("\n\n")
	}
	fmt.Fprintf(&desc, "Planned: %s to %s\n", task.StartDate, task.EndDate)
	if task.Completed {
		desc.WriteString("Status: completed\n")
	} else {
		desc.WriteString("Status: pending\n")
	}

	event := &calendar.Event{
		Summary:     summary,
		Description: desc.String(),
		ColorId:     colorID,
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{TaskIDProperty: task.ID},
		},
	}

	startAt, okStart := parseDatetime(task.StartTime)
	endAt, okEnd := parseDatetime(task.EndTime)
	if okStart && okEnd {
		if minEnd := startAt.Add(timeline.MinDurationMinutes * time.Minute); endAt.Before(minEnd) {
			endAt = minEnd
		}
		event.Start = &calendar.EventDateTime{DateTime: startAt.Format(time.RFC3339)}
		event.End = &calendar.EventDateTime{DateTime: endAt.Format(time.RFC3339)}
		return event, nil
	}

	// all-day end dates are exclusive
	event.Start = &calendar.EventDateTime{Date: task.StartDate}
	event.End = &calendar.EventDateTime{Date: end.AddDate(0, 0, 1).Format(model.DateLayout)}
	return event, nil
}

// EventNeedsUpdate returns a patch holding only the fields of target that differ
// from existing, or nil when the event is up to date.
func EventNeedsUpdate(existing, target *calendar.Event) *calendar.Event {
	patch := &calendar.Event{}
	needsUpdate := false

	if existing.Summary != target.Summary {
		patch.Summary = target.Summary
		needsUpdate = true
	}
	if existing.Description != target.Description {
		patch.Description = target.Description
		needsUpdate = true
	}
	if existing.ColorId != target.ColorId {
		patch.ColorId = target.ColorId
		needsUpdate = true
	}
	if !sameTime(existing.Start, target.Start) || !sameTime(existing.End, target.End) {
		patch.Start = patchTime(target.Start)
		patch.End = patchTime(target.End)
		needsUpdate = true
	}

	if needsUpdate {
		return patch
	}
	return nil
}

func sameTime(a, b *calendar.EventDateTime) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Date != "" || b.Date != "" {
		return a.Date == b.Date
	}
	at, errA := time.Parse(time.RFC3339, a.DateTime)
	bt, errB := time.Parse(time.RFC3339, b.DateTime)
	if errA != nil || errB != nil {
		return a.DateTime == b.DateTime
	}
	return at.Equal(bt)
}

// patchTime clears the other representation so an event can switch between
// all-day and timed.
func patchTime(t *calendar.EventDateTime) *calendar.EventDateTime {
	if t == nil {
		return nil
	}
	out := *t
	if out.Date != "" {
		out.NullFields = append(out.NullFields, "DateTime")
	} else {
		out.NullFields = append(out.NullFields, "Date")
	}
	return &out
}
