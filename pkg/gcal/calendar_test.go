package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/breadoorr/SmartPlan/pkg/colors"
	"github.com/breadoorr/SmartPlan/pkg/index"
	"github.com/breadoorr/SmartPlan/pkg/model"
	"github.com/breadoorr/SmartPlan/pkg/overdue"
)

// fakeCalendar is an in-memory stand-in for the Calendar API events resource.
type fakeCalendar struct {
	mu      sync.Mutex
	events  map[string]*calendar.Event
	nextID  int
	inserts int
	patches int
	lists   int
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{events: make(map[string]*calendar.Event)}
}

func (f *fakeCalendar) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(calendar.CalendarList{Items: []*calendar.CalendarListEntry{
			{Id: "primary@example.com", Summary: "Personal"},
			{Id: "tasks-cal", Summary: "Tasks"},
		}})
	})
	mux.HandleFunc("GET /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.lists++
		var items []*calendar.Event
		for _, e := range f.events {
			if matchesProperties(e, r.URL.Query()["privateExtendedProperty"]) {
				items = append(items, e)
			}
		}
		json.NewEncoder(w).Encode(calendar.Events{Items: items})
	})
	mux.HandleFunc("POST /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		var e calendar.Event
		json.NewDecoder(r.Body).Decode(&e)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.inserts++
		f.nextID++
		e.Id = fmt.Sprintf("evt%d", f.nextID)
		f.events[e.Id] = &e
		json.NewEncoder(w).Encode(e)
	})
	mux.HandleFunc("GET /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		e, ok := f.events[r.PathValue("id")]
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"Not Found"}}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(e)
	})
	mux.HandleFunc("PATCH /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		var patch calendar.Event
		json.NewDecoder(r.Body).Decode(&patch)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.patches++
		e, ok := f.events[r.PathValue("id")]
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"Not Found"}}`, http.StatusNotFound)
			return
		}
		if patch.Summary != "" {
			e.Summary = patch.Summary
		}
		if patch.Description != "" {
			e.Description = patch.Description
		}
		if patch.ColorId != "" {
			e.ColorId = patch.ColorId
		}
		if patch.Start != nil {
			e.Start = patch.Start
		}
		if patch.End != nil {
			e.End = patch.End
		}
		json.NewEncoder(w).Encode(e)
	})
	mux.HandleFunc("DELETE /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.events, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func matchesProperties(e *calendar.Event, filters []string) bool {
	for _, filter := range filters {
		k, v, _ := strings.Cut(filter, "=")
		if e.ExtendedProperties == nil || e.ExtendedProperties.Private[k] != v {
			return false
		}
	}
	return true
}

func newTestClient(t *testing.T, fake *fakeCalendar, idx *index.EventIndex) *CalendarClient {
	t.Helper()
	ts := httptest.NewServer(fake.handler())
	t.Cleanup(ts.Close)

	srv, err := calendar.NewService(context.Background(),
		option.WithEndpoint(ts.URL+"/"),
		option.WithHTTPClient(ts.Client()),
	)
	if err != nil {
		t.Fatalf("calendar.NewService failed: %v", err)
	}
	cache, err := colors.NewColorCache(filepath.Join(t.TempDir(), "plan_colors.json"))
	if err != nil {
		t.Fatalf("NewColorCache failed: %v", err)
	}
	c := NewCalendarClient(srv, "tasks-cal", idx, cache)
	c.now = func() time.Time { return testNow }
	return c
}

func testIndex(t *testing.T) *index.EventIndex {
	t.Helper()
	idx, err := index.NewEventIndex(filepath.Join(t.TempDir(), "events.json"))
	if err != nil {
		t.Fatalf("NewEventIndex failed: %v", err)
	}
	return idx
}

func TestSyncTaskCreatesThenPatches(t *testing.T) {
	fake := newFakeCalendar()
	idx := testIndex(t)
	c := newTestClient(t, fake, idx)
	ctx := context.Background()

	task := model.Task{ID: "1", Title: "Set up hosting", StartDate: "2024-01-10", EndDate: "2024-01-12"}
	created, err := c.SyncTask(ctx, "work", task)
	if err != nil {
		t.Fatalf("SyncTask failed: %v", err)
	}
	if fake.inserts != 1 {
		t.Fatalf("Expected 1 insert, got %d", fake.inserts)
	}
	if idx.Get("work", "1") != created.Id {
		t.Errorf("Expected index to map work/1 to %s", created.Id)
	}
	if created.ExtendedProperties.Private[PlanKeyProperty] != "work" {
		t.Errorf("Expected plan property, got %v", created.ExtendedProperties.Private)
	}

	// unchanged task: no write
	if _, err := c.SyncTask(ctx, "work", task); err != nil {
		t.Fatalf("SyncTask failed: %v", err)
	}
	if fake.inserts != 1 || fake.patches != 0 {
		t.Errorf("Expected no writes for unchanged task, got %d inserts %d patches", fake.inserts, fake.patches)
	}

	task.Completed = true
	updated, err := c.SyncTask(ctx, "work", task)
	if err != nil {
		t.Fatalf("SyncTask failed: %v", err)
	}
	if fake.patches != 1 {
		t.Errorf("Expected 1 patch, got %d", fake.patches)
	}
	if updated.Summary != "✓ Set up hosting" || updated.ColorId != colors.CompletedColorID {
		t.Errorf("Unexpected patched event %+v", updated)
	}
}

func TestSyncTaskFindsEventWithoutIndex(t *testing.T) {
	fake := newFakeCalendar()
	ctx := context.Background()
	task := model.Task{ID: "1", Title: "Write post", StartDate: "2024-01-10", EndDate: "2024-01-10"}

	first := newTestClient(t, fake, testIndex(t))
	if _, err := first.SyncTask(ctx, "blog", task); err != nil {
		t.Fatalf("SyncTask failed: %v", err)
	}

	// fresh index, same calendar
	second := newTestClient(t, fake, testIndex(t))
	second.colors = first.colors
	if _, err := second.SyncTask(ctx, "blog", task); err != nil {
		t.Fatalf("SyncTask failed: %v", err)
	}
	if fake.inserts != 1 {
		t.Errorf("Expected event found by property search, got %d inserts", fake.inserts)
	}

	// same task id in another plan is a different event
	if _, err := second.SyncTask(ctx, "other", task); err != nil {
		t.Fatalf("SyncTask failed: %v", err)
	}
	if fake.inserts != 2 {
		t.Errorf("Expected a second insert for another plan, got %d", fake.inserts)
	}
}

func TestSyncTaskStaleIndexEntry(t *testing.T) {
	fake := newFakeCalendar()
	idx := testIndex(t)
	idx.Set("work", "1", "deleted-event")
	c := newTestClient(t, fake, idx)

	task := model.Task{ID: "1", Title: "Plan", StartDate: "2024-01-10", EndDate: "2024-01-10"}
	event, err := c.SyncTask(context.Background(), "work", task)
	if err != nil {
		t.Fatalf("SyncTask failed: %v", err)
	}
	if idx.Get("work", "1") != event.Id {
		t.Errorf("Expected index repaired to %s, got %s", event.Id, idx.Get("work", "1"))
	}
}

func TestSyncPlan(t *testing.T) {
	fake := newFakeCalendar()
	c := newTestClient(t, fake, nil)

	plan := &model.Plan{Key: "work", Tasks: []model.Task{
		{ID: "1", Title: "A", StartDate: "2024-01-10", EndDate: "2024-01-11"},
		{ID: "2", Title: "B", StartDate: "bad", EndDate: "2024-01-11"},
		{ID: "3", Title: "C", StartDate: "2024-01-12", EndDate: "2024-01-12", StartTime: "2024-01-12T14:00:00Z", EndTime: "2024-01-12T16:00:00Z"},
	}}

	synced, err := c.SyncPlan(context.Background(), plan)
	if synced != 2 {
		t.Errorf("Expected 2 synced, got %d", synced)
	}
	if err == nil || !strings.Contains(err.Error(), `"2"`) {
		t.Errorf("Expected error naming task 2, got %v", err)
	}
	if fake.inserts != 2 {
		t.Errorf("Expected 2 inserts, got %d", fake.inserts)
	}
}

func TestSyncPlanPrunesRemovedTasks(t *testing.T) {
	fake := newFakeCalendar()
	idx := testIndex(t)
	c := newTestClient(t, fake, idx)
	table, err := overdue.NewTable(filepath.Join(t.TempDir(), "pending_tasks.json"))
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	c.TrackOverdue(table)
	ctx := context.Background()

	other := &model.Plan{Key: "home", Tasks: []model.Task{
		{ID: "2", Title: "Groceries", StartDate: "2024-01-20", EndDate: "2024-01-20"},
	}}
	if _, err := c.SyncPlan(ctx, other); err != nil {
		t.Fatalf("SyncPlan failed: %v", err)
	}

	plan := &model.Plan{Key: "work", Tasks: []model.Task{
		{ID: "1", Title: "A", StartDate: "2024-01-20", EndDate: "2024-01-21"},
		{ID: "2", Title: "B", StartDate: "2024-01-22", EndDate: "2024-01-22"},
	}}
	if _, err := c.SyncPlan(ctx, plan); err != nil {
		t.Fatalf("SyncPlan failed: %v", err)
	}
	if len(fake.events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(fake.events))
	}

	plan.Tasks = plan.Tasks[:1]
	synced, err := c.SyncPlan(ctx, plan)
	if err != nil || synced != 1 {
		t.Fatalf("Expected 1 synced, got %d, %v", synced, err)
	}

	if len(fake.events) != 2 {
		t.Errorf("Expected 2 events left, got %d", len(fake.events))
	}
	if found, _ := c.GetEventByTaskID(ctx, "work", "2"); found != nil {
		t.Errorf("Expected event of removed task deleted, found %+v", found)
	}
	if found, _ := c.GetEventByTaskID(ctx, "home", "2"); found == nil {
		t.Error("Expected task 2 of another plan kept")
	}
	if idx.Get("work", "2") != "" {
		t.Error("Expected index entry of removed task dropped")
	}
	if _, ok := table.Entries[index.Key("work", "2")]; ok {
		t.Error("Expected removed task no longer tracked for the overdue sweep")
	}
	if _, ok := table.Entries[index.Key("work", "1")]; !ok {
		t.Error("Expected kept task still tracked")
	}
}

func TestPruneStaleIndexOnlyEntry(t *testing.T) {
	fake := newFakeCalendar()
	idx := testIndex(t)
	idx.Set("work", "9", "gone-event")
	c := newTestClient(t, fake, idx)

	n, err := c.PruneStale(context.Background(), "work", map[string]bool{})
	if err != nil {
		t.Fatalf("PruneStale failed: %v", err)
	}
	if n != 1 || idx.Get("work", "9") != "" {
		t.Errorf("Expected stale index entry dropped, got %d, %q", n, idx.Get("work", "9"))
	}
}

func TestDeleteEvent(t *testing.T) {
	fake := newFakeCalendar()
	c := newTestClient(t, fake, nil)
	ctx := context.Background()

	event, err := c.SyncTask(ctx, "work", model.Task{ID: "1", Title: "A", StartDate: "2024-01-10", EndDate: "2024-01-10"})
	if err != nil {
		t.Fatalf("SyncTask failed: %v", err)
	}
	if err := c.DeleteEvent(ctx, event.Id); err != nil {
		t.Fatalf("DeleteEvent failed: %v", err)
	}
	found, err := c.GetEventByTaskID(ctx, "work", "1")
	if err != nil {
		t.Fatalf("GetEventByTaskID failed: %v", err)
	}
	if found != nil {
		t.Errorf("Expected event deleted, found %+v", found)
	}
}

func TestFindCalendarID(t *testing.T) {
	fake := newFakeCalendar()
	c := newTestClient(t, fake, nil)

	id, err := FindCalendarID(context.Background(), c.srv, "Tasks")
	if err != nil {
		t.Fatalf("FindCalendarID failed: %v", err)
	}
	if id != "tasks-cal" {
		t.Errorf("Expected tasks-cal, got %s", id)
	}
	if _, err := FindCalendarID(context.Background(), c.srv, "Missing"); err == nil {
		t.Error("Expected error for unknown calendar")
	}
}

func TestSweepOverdue(t *testing.T) {
	fake := newFakeCalendar()
	c := newTestClient(t, fake, nil)
	table, err := overdue.NewTable(filepath.Join(t.TempDir(), "pending_tasks.json"))
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	c.TrackOverdue(table)
	ctx := context.Background()

	event, err := c.SyncTask(ctx, "work", model.Task{ID: "1", Title: "Draft", StartDate: "2024-01-10", EndDate: "2024-01-10"})
	if err != nil {
		t.Fatalf("SyncTask failed: %v", err)
	}
	if len(table.Entries) != 1 {
		t.Fatalf("Expected task tracked, got %+v", table.Entries)
	}

	if n, err := c.SweepOverdue(ctx); err != nil || n != 0 {
		t.Fatalf("Expected nothing to sweep, got %d, %v", n, err)
	}

	c.now = func() time.Time { return testNow.Add(24 * time.Hour) }
	n, err := c.SweepOverdue(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Expected 1 swept event, got %d, %v", n, err)
	}
	if got := fake.events[event.Id].Summary; got != "! Draft" {
		t.Errorf("Expected overdue summary, got %q", got)
	}
}
