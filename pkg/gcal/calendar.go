package gcal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/breadoorr/SmartPlan/pkg/colors"
	"github.com/breadoorr/SmartPlan/pkg/index"
	"github.com/breadoorr/SmartPlan/pkg/model"
	"github.com/breadoorr/SmartPlan/pkg/overdue"
)

const defaultColorID = "1"

// CalendarClient syncs plan tasks into one Google calendar.
type CalendarClient struct {
	srv        *calendar.Service
	calendarID string
	index      *index.EventIndex
	colors     *colors.ColorCache
	pending    *overdue.Table
	now        func() time.Time
}

// NewCalendarClient wraps srv. idx and cache may be nil.
func NewCalendarClient(srv *calendar.Service, calendarID string, idx *index.EventIndex, cache *colors.ColorCache) *CalendarClient {
	return &CalendarClient{srv: srv, calendarID: calendarID, index: idx, colors: cache, now: time.Now}
}

// TrackOverdue records every synced pending task in table so SweepOverdue
// can flag it later.
func (c *CalendarClient) TrackOverdue(table *overdue.Table) {
	c.pending = table
}

func (c *CalendarClient) colorFor(planKey string, task model.Task) string {
	if task.Completed {
		return colors.CompletedColorID
	}
	if c.colors == nil {
		return defaultColorID
	}
	return c.colors.GetColorID(planKey)
}

// SyncTask creates the event for task or patches the fields that changed.
func (c *CalendarClient) SyncTask(ctx context.Context, planKey string, task model.Task) (*calendar.Event, error) {
	event, err := EventFromTask(task, c.colorFor(planKey, task), c.now())
	if err != nil {
		return nil, err
	}
	event.ExtendedProperties.Private[PlanKeyProperty] = planKey

	var existing *calendar.Event
	if c.index != nil {
		if eventID := c.index.Get(planKey, task.ID); eventID != "" {
			existing, err = c.srv.Events.Get(c.calendarID, eventID).Context(ctx).Do()
			if err != nil || existing.Status == "cancelled" {
				// stale index entry, fall back to search
				existing = nil
			}
		}
	}

	if existing == nil {
		existing, err = c.GetEventByTaskID(ctx, planKey, task.ID)
		if err != nil {
			return nil, fmt.Errorf("error searching for event: %w", err)
		}
	}

	if existing != nil {
		patch := EventNeedsUpdate(existing, event)
		if patch == nil {
			c.remember(planKey, task, existing.Id)
			return existing, nil
		}
		updated, err := c.PatchEvent(ctx, existing.Id, patch)
		if err != nil {
			return nil, fmt.Errorf("patch event for task %q: %w", task.ID, err)
		}
		c.remember(planKey, task, updated.Id)
		return updated, nil
	}

	created, err := c.srv.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("create event for task %q: %w", task.ID, err)
	}
	c.remember(planKey, task, created.Id)
	return created, nil
}

func (c *CalendarClient) remember(planKey string, task model.Task, eventID string) {
	if c.index != nil {
		c.index.Set(planKey, task.ID, eventID)
	}
	if c.pending != nil {
		c.pending.Track(index.Key(planKey, task.ID), eventID, task, c.now())
	}
}

// SyncPlan syncs every task of plan and returns how many succeeded. Failures
// of single tasks are logged and joined into the returned error. Events of
// tasks no longer in the plan are deleted afterwards.
func (c *CalendarClient) SyncPlan(ctx context.Context, plan *model.Plan) (int, error) {
	var errs []error
	synced := 0
	keep := make(map[string]bool, len(plan.Tasks))
	for _, task := range plan.Tasks {
		keep[task.ID] = true
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if _, err := c.SyncTask(ctx, plan.Key, task); err != nil {
			log.Printf("Failed to sync task %q: %v", task.ID, err)
			errs = append(errs, err)
			continue
		}
		synced++
	}

	if _, err := c.PruneStale(ctx, plan.Key, keep); err != nil {
		errs = append(errs, err)
	}
	return synced, errors.Join(errs...)
}

// PruneStale deletes the events of planKey whose task id is not in keep and
// forgets them in the index and the overdue table.
func (c *CalendarClient) PruneStale(ctx context.Context, planKey string, keep map[string]bool) (int, error) {
	stale := make(map[string]string)
	if c.index != nil {
		for taskID, eventID := range c.index.Tasks(planKey) {
			if !keep[taskID] {
				stale[taskID] = eventID
			}
		}
	}

	call := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", PlanKeyProperty, planKey))
	err := call.Pages(ctx, func(events *calendar.Events) error {
		for _, e := range events.Items {
			var taskID string
			if e.ExtendedProperties != nil {
				taskID = e.ExtendedProperties.Private[TaskIDProperty]
			}
			if taskID != "" && !keep[taskID] {
				stale[taskID] = e.Id
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("error listing events of plan %q: %w", planKey, err)
	}

	var errs []error
	deleted := 0
	for taskID, eventID := range stale {
		if err := c.DeleteEvent(ctx, eventID); err != nil && !isGone(err) {
			log.Printf("Failed to delete event %s of removed task %q: %v", eventID, taskID, err)
			errs = append(errs, err)
			continue
		}
		if c.index != nil {
			c.index.Remove(planKey, taskID)
		}
		if c.pending != nil {
			c.pending.Remove(index.Key(planKey, taskID))
		}
		deleted++
	}
	return deleted, errors.Join(errs...)
}

// isGone reports whether err means the event no longer exists.
func isGone(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
	}
	return false
}

// SweepOverdue prefixes the events of tracked tasks whose end date has passed.
func (c *CalendarClient) SweepOverdue(ctx context.Context) (int, error) {
	if c.pending == nil {
		return 0, nil
	}
	var errs []error
	patched := 0
	for _, e := range c.pending.Sweep(c.now()) {
		patch := &calendar.Event{Summary: overduePrefix + " " + e.Title}
		if _, err := c.PatchEvent(ctx, e.EventID, patch); err != nil {
			log.Printf("Sweep: error patching event %s: %v", e.EventID, err)
			errs = append(errs, err)
			continue
		}
		patched++
	}
	return patched, errors.Join(errs...)
}

// PatchEvent performs a partial update on an event.
func (c *CalendarClient) PatchEvent(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error) {
	return c.srv.Events.Patch(c.calendarID, eventID, patch).Context(ctx).Do()
}

// DeleteEvent deletes an event from the calendar.
func (c *CalendarClient) DeleteEvent(ctx context.Context, eventID string) error {
	return c.srv.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
}

// GetEventByTaskID looks the task up by its private extended properties.
func (c *CalendarClient) GetEventByTaskID(ctx context.Context, planKey, taskID string) (*calendar.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(
			fmt.Sprintf("%s=%s", TaskIDProperty, taskID),
			fmt.Sprintf("%s=%s", PlanKeyProperty, planKey),
		).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if len(events.Items) > 0 {
		return events.Items[0], nil
	}
	return nil, nil
}
